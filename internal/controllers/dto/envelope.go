// Package dto 定义 HTTP 请求/响应结构及其与服务层输入之间的转换。
package dto

// Envelope 为所有接口的统一响应结构。
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Success 构造成功响应。
func Success(data any, message string) Envelope {
	return Envelope{Success: true, Data: data, Message: message}
}

// Failure 构造失败响应。
func Failure(reason, message string) Envelope {
	return Envelope{Success: false, Message: message, Reason: reason}
}
