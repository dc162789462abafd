package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionError is one entry in a session's ordered error log.
type SessionError struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
}

// MonitorSession covers one controller run: created on the transition into
// Running, finalized on the transition into Stopped.
type MonitorSession struct {
	ID                string         `json:"id"`
	StartTime         time.Time      `json:"start_time"`
	EndTime           *time.Time     `json:"end_time,omitempty"`
	ChecksPerformed   int            `json:"checks_performed"`
	NotificationsSent int            `json:"notifications_sent"`
	Errors            []SessionError `json:"errors,omitempty"`
	ConfigSnapshot    string         `json:"config_snapshot,omitempty"`
}

// NewMonitorSession opens a session starting now.
func NewMonitorSession(configSnapshot string) *MonitorSession {
	return &MonitorSession{
		ID:             uuid.New().String(),
		StartTime:      time.Now(),
		ConfigSnapshot: configSnapshot,
	}
}

// RecordError appends to the session's ordered error log.
func (s *MonitorSession) RecordError(kind, message string) {
	s.Errors = append(s.Errors, SessionError{
		Timestamp: time.Now(),
		Kind:      kind,
		Message:   message,
	})
}

// Finalize stamps the session's end time.
func (s *MonitorSession) Finalize() {
	now := time.Now()
	s.EndTime = &now
}
