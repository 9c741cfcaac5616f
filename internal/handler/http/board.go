package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"blvckboard/internal/middleware"
	"blvckboard/internal/service"
)

// BoardHandler 封装了画板相关的 HTTP 处理逻辑
type BoardHandler struct {
	claimService *service.ClaimService
	boardService *service.BoardService
}

// NewBoardHandler 创建 BoardHandler 实例
func NewBoardHandler(claimService *service.ClaimService, boardService *service.BoardService) *BoardHandler {
	if claimService == nil || boardService == nil {
		panic("services cannot be nil for BoardHandler")
	}
	return &BoardHandler{claimService: claimService, boardService: boardService}
}

// UpdateRequest 是 POST /api/blvckboard/update 的请求体
type UpdateRequest struct {
	Coordinate string `json:"coordinate"`
	Color      string `json:"color"`
	Comment    string `json:"comment"`
	Symbol     string `json:"symbol"`
	Address    string `json:"address"`
	NFTCount   *int64 `json:"nftCount"` // 缺省为 0
}

// GetBoard 返回所有已认领的单元格
func (h *BoardHandler) GetBoard(c *gin.Context) {
	cells, err := h.boardService.GetBoard(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, cells)
}

// GetCell 返回单个单元格，从未被认领时返回 null
func (h *BoardHandler) GetCell(c *gin.Context) {
	x, errX := strconv.Atoi(c.Query("x"))
	y, errY := strconv.Atoi(c.Query("y"))
	if errX != nil || errY != nil {
		ErrorResponse(c, http.StatusBadRequest, service.MsgInvalidInput)
		return
	}

	cell, err := h.boardService.GetCell(c.Request.Context(), x, y)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, cell)
}

// Update 认领或编辑一个单元格
func (h *BoardHandler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Update: invalid request body")
		ErrorResponse(c, http.StatusBadRequest, service.MsgInvalidInput)
		return
	}
	var holding int64
	if req.NFTCount != nil {
		holding = *req.NFTCount
	}

	// 启用持有证明时，请求体必须与签名方的证明一致
	if attestation, ok := middleware.AttestationFromContext(c); ok {
		if attestation.Address != req.Address || attestation.NFTCount != holding {
			logrus.WithFields(logrus.Fields{
				"address":          req.Address,
				"attested_address": attestation.Address,
				"nft_count":        holding,
				"attested_count":   attestation.NFTCount,
			}).Warn("Handler.Update: request disagrees with holding attestation")
			ErrorResponse(c, http.StatusBadRequest, service.MsgNotHolder)
			return
		}
	}

	projection, err := h.claimService.SubmitClaim(c.Request.Context(), service.ClaimRequest{
		Coordinate:   req.Coordinate,
		Color:        req.Color,
		Symbol:       req.Symbol,
		Comment:      req.Comment,
		Requester:    req.Address,
		HoldingCount: holding,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, projection)
}

// Quota 返回地址当前的配额使用情况
func (h *BoardHandler) Quota(c *gin.Context) {
	var holding int64
	if raw := c.Query("nftCount"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, service.MsgInvalidInput)
			return
		}
		holding = parsed
	}

	status, err := h.boardService.QuotaStatus(c.Request.Context(), c.Query("address"), holding)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, status)
}

// RegisterRoutes 把画板路由挂到 router 上。claimMiddleware 只作用于写入路由。
func (h *BoardHandler) RegisterRoutes(router gin.IRouter, claimMiddleware ...gin.HandlerFunc) {
	board := router.Group("/api/blvckboard")
	board.GET("", h.GetBoard)
	board.GET("/cell", h.GetCell)
	board.GET("/quota", h.Quota)
	board.POST("/update", append(claimMiddleware, h.Update)...)
}
