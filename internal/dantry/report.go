package dantry

import "time"

// Severity 심각도
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Event 보고 요청
type Event struct {
	Message  string
	Stack    string
	Context  string
	Severity Severity
	UserID   string
}

// Report 저장되는 에러 보고
type Report struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Stack     string    `json:"stack,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	UserAgent string    `json:"userAgent"`
	UserID    string    `json:"userId,omitempty"`
	Context   string    `json:"context,omitempty"`
	Severity  Severity  `json:"severity"`
}
