package models

import "github.com/SwiftFiat/SwiftFiat-Payouts/utils"

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Version string      `json:"version"`
}

type ErrorResponse struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Errors  []string            `json:"errors"`
	Fields  map[string][]string `json:"fields,omitempty"`
	Version string              `json:"version"`
}

func NewError(msg string) *ErrorResponse {
	return &ErrorResponse{
		Status:  "failed",
		Message: msg,
		Version: utils.REVISION,
	}
}

// NewFieldError reports per-field validation messages
func NewFieldError(msg string, fields map[string][]string) *ErrorResponse {
	e := NewError(msg)
	e.Fields = fields
	for name, messages := range fields {
		for _, m := range messages {
			e.Errors = append(e.Errors, name+": "+m)
		}
	}
	return e
}

func NewSuccess(msg string, data interface{}) *SuccessResponse {
	return &SuccessResponse{
		Status:  "successful",
		Message: msg,
		Data:    data,
		Version: utils.REVISION,
	}
}
