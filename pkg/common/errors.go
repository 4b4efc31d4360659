package common

import "errors"

var (
	// ErrNotConnected 未连接错误
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected 已连接错误
	ErrAlreadyConnected = errors.New("already connected")

	// ErrNotFound 未找到错误
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput 无效输入错误
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed 验证失败错误
	ErrValidationFailed = errors.New("validation failed")

	// ErrProcessingFailed 处理失败错误
	ErrProcessingFailed = errors.New("processing failed")

	// ErrDeserialization 反序列化失败
	ErrDeserialization = errors.New("deserialization failed")

	// ErrUnsupportedMessage 不支持的消息类型 (SDK 与协议版本不匹配)
	ErrUnsupportedMessage = errors.New("unsupported message type")
)

// AppError 应用错误
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap 支持 errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError 创建应用错误
func NewAppError(code string, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
