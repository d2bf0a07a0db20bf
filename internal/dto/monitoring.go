package dto

import "encoding/json"

// ErrorReport is a client-side error forwarded for server logging.
type ErrorReport struct {
	Message   string                 `json:"message" validate:"required,max=4000"`
	Stack     string                 `json:"stack" validate:"max=20000"`
	URL       string                 `json:"url" validate:"max=2048"`
	UserAgent string                 `json:"userAgent" validate:"max=512"`
	UserID    string                 `json:"userId" validate:"max=64"`
	Severity  string                 `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	Context   map[string]interface{} `json:"context"`
	Timestamp string                 `json:"timestamp"`
}

// PerformanceReport is a client-side timing sample.
type PerformanceReport struct {
	Type     string          `json:"type" validate:"required,oneof=page_load api_call component_render"`
	Page     string          `json:"page" validate:"max=2048"`
	Endpoint string          `json:"endpoint" validate:"max=2048"`
	Duration float64         `json:"duration" validate:"gte=0"`
	Success  *bool           `json:"success"`
	Metadata json.RawMessage `json:"metadata"`
}
