package progress

import "time"

type EventType string

const (
	EventScanStarted      EventType = "scan_started"
	EventScanWarning      EventType = "scan_warning"
	EventScanFinished     EventType = "scan_finished"
	EventFileSkipped      EventType = "file_skipped"
	EventDetectorStarted  EventType = "detector_started"
	EventDetectorFinished EventType = "detector_finished"
)

type Event struct {
	Type         EventType `json:"type"`
	At           time.Time `json:"at"`
	RunID        string    `json:"run_id,omitempty"`
	RuleID       string    `json:"rule_id,omitempty"`
	Path         string    `json:"path,omitempty"`
	Message      string    `json:"message,omitempty"`
	Error        string    `json:"error,omitempty"`
	FindingCount int       `json:"finding_count,omitempty"`
	FileCount    int       `json:"file_count,omitempty"`
	DurationMS   int64     `json:"duration_ms,omitempty"`
}
