package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"blvckboard/internal/service"
)

// AttestationHeader 携带持有证明的请求头
const AttestationHeader = "X-Holding-Attestation"

const attestationContextKey = "holding_attestation"

// ErrMissingAttestation 表示请求没有携带持有证明
var ErrMissingAttestation = errors.New("missing holding attestation header")

// HoldingAttestation 是签名方对某个地址持有数量的证明
type HoldingAttestation struct {
	Address  string
	NFTCount int64
}

// HoldingAttestation 的 JWT claims
type attestationClaims struct {
	NFTCount *int64 `json:"nft_count"`
	jwt.RegisteredClaims
}

// RequireHoldingAttestation 返回一个 Gin 中间件，校验 X-Holding-Attestation 中的 HS256 JWT，
// 并把证明写入上下文。持有数量本身仍由服务层信任，这里只负责确认它来自可信的签名方。
func RequireHoldingAttestation(secret string) gin.HandlerFunc {
	if secret == "" {
		panic("attestation secret cannot be empty for RequireHoldingAttestation middleware")
	}

	return func(c *gin.Context) {
		tokenStr := strings.TrimSpace(c.GetHeader(AttestationHeader))
		if tokenStr == "" {
			logrus.Warn("Attestation middleware: missing attestation header")
			abortNotHolder(c)
			return
		}

		attestation, err := ParseAttestation(tokenStr, secret)
		if err != nil {
			logCtx := logrus.WithError(err)
			logCtx.Warn("Attestation middleware: invalid attestation")
			var validationError *jwt.ValidationError
			if errors.As(err, &validationError) && validationError.Errors&jwt.ValidationErrorExpired != 0 {
				logCtx.Warn("Reason: attestation is expired")
			}
			abortNotHolder(c)
			return
		}

		c.Set(attestationContextKey, attestation)
		logrus.WithFields(logrus.Fields{
			"address":   attestation.Address,
			"nft_count": attestation.NFTCount,
		}).Debug("Attestation middleware: holding attested")
		c.Next()
	}
}

// AttestationFromContext 返回中间件写入的持有证明
func AttestationFromContext(c *gin.Context) (HoldingAttestation, bool) {
	v, ok := c.Get(attestationContextKey)
	if !ok {
		return HoldingAttestation{}, false
	}
	attestation, ok := v.(HoldingAttestation)
	return attestation, ok
}

// ParseAttestation 解析并验证持有证明
func ParseAttestation(tokenStr, secret string) (HoldingAttestation, error) {
	claims := &attestationClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return HoldingAttestation{}, fmt.Errorf("attestation validation failed: %w", err)
	}
	if !token.Valid {
		return HoldingAttestation{}, errors.New("invalid attestation")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return HoldingAttestation{}, errors.New("attestation is missing sub claim")
	}
	if claims.NFTCount == nil || *claims.NFTCount < 0 {
		return HoldingAttestation{}, errors.New("attestation has missing or negative nft_count claim")
	}
	return HoldingAttestation{Address: claims.Subject, NFTCount: *claims.NFTCount}, nil
}

// SignAttestation 签发持有证明，ttl <= 0 表示不过期
func SignAttestation(secret string, attestation HoldingAttestation, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("attestation secret cannot be empty")
	}
	if attestation.NFTCount < 0 {
		return "", fmt.Errorf("nft count %d must not be negative", attestation.NFTCount)
	}
	now := time.Now()
	count := attestation.NFTCount
	claims := attestationClaims{
		NFTCount: &count,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  attestation.Address,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func abortNotHolder(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"statusCode": http.StatusBadRequest, "message": service.MsgNotHolder})
}
