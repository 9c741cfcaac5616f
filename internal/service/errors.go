package service

import (
	"errors"
	"fmt"
)

// 服务层错误，调用方用 errors.Is 判断
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotHolder     = errors.New("holding count must not be negative")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrStorage       = errors.New("storage error")
)

// 返回给客户端的提示信息，与前端约定一致，不要修改
const (
	MsgInvalidInput  = "Unable to update blvckboard"
	MsgNotHolder     = "Must be a blvck holder"
	MsgQuotaExceeded = "You already reach your limit"
)

// RejectionCode 是拒绝原因的稳定编码
type RejectionCode string

const (
	CodeInvalidInput  RejectionCode = "invalid_input"
	CodeQuotaExceeded RejectionCode = "quota_exceeded"
	CodeStorageError  RejectionCode = "storage_error"
)

// Rejection 是服务层返回的唯一错误类型。
// 传输层只需要把 Code 翻译成状态码，把 Message 原样返回。
type Rejection struct {
	Code    RejectionCode
	Message string
	Err     error
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s: %v", r.Code, r.Message, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// AsRejection 从错误链中取出 Rejection
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

func rejectInvalidInput(cause error) *Rejection {
	err := ErrInvalidInput
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidInput, cause)
	}
	return &Rejection{Code: CodeInvalidInput, Message: MsgInvalidInput, Err: err}
}

func rejectNotHolder(holding int64) *Rejection {
	return &Rejection{
		Code:    CodeInvalidInput,
		Message: MsgNotHolder,
		Err:     fmt.Errorf("%w: %w (got %d)", ErrInvalidInput, ErrNotHolder, holding),
	}
}

func rejectQuotaExceeded(maxAllowed int64) *Rejection {
	return &Rejection{
		Code:    CodeQuotaExceeded,
		Message: MsgQuotaExceeded,
		Err:     fmt.Errorf("%w: max %d cells", ErrQuotaExceeded, maxAllowed),
	}
}

// rejectStorage 把仓库错误原样带给客户端，客户端可以重试
func rejectStorage(cause error) *Rejection {
	return &Rejection{
		Code:    CodeStorageError,
		Message: cause.Error(),
		Err:     fmt.Errorf("%w: %w", ErrStorage, cause),
	}
}
