// Package audit records every accepted and rejected plan mutation as JSON lines.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"discipline-journal/internal/logging"
	"discipline-journal/internal/security"
)

// Action names an audited journal operation.
type Action string

const (
	ActionCreatePlan   Action = "PLAN_CREATED"
	ActionArmPlan      Action = "PLAN_ARMED"
	ActionUpdatePlan   Action = "PLAN_UPDATED"
	ActionArchivePlan  Action = "PLAN_ARCHIVED"
	ActionUnarchive    Action = "PLAN_UNARCHIVED"
	ActionAddEvent     Action = "EVENT_ADDED"
	ActionClosePlan    Action = "PLAN_CLOSED"
	ActionSelfReview   Action = "SELF_REVIEW_SUBMITTED"
	ActionAuthRejected Action = "AUTH_REJECTED"
)

// Event is a single audit log entry.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Action    Action                 `json:"action"`
	UserID    string                 `json:"user_id,omitempty"`
	PlanID    string                 `json:"plan_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Success   bool                   `json:"success"`
	ErrorCode string                 `json:"error_code,omitempty"`
	ErrorMsg  string                 `json:"error,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Config holds audit logger configuration.
type Config struct {
	LogDir     string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		LogDir:     filepath.Join(home, ".config", "discipline-journal", "audit"),
		MaxSize:    50,
		MaxBackups: 30,
		MaxAge:     365,
		Compress:   true,
	}
}

// Logger appends audit events to a writer. A nil *Logger discards events.
type Logger struct {
	writer io.WriteCloser
	mu     sync.Mutex
	now    func() time.Time
}

// NewLogger creates an audit logger writing to a rotated file under cfg.LogDir.
func NewLogger(cfg Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "audit.log"),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	return NewWriterLogger(writer), nil
}

// NewWriterLogger creates an audit logger on an arbitrary writer.
func NewWriterLogger(w io.WriteCloser) *Logger {
	return &Logger{writer: w, now: func() time.Time { return time.Now().UTC() }}
}

// Log writes one event.
func (l *Logger) Log(ctx context.Context, event Event) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	if reqID, ok := ctx.Value(logging.RequestIDKey).(string); ok {
		event.RequestID = reqID
	}
	event.Details = security.RedactDetails(event.Details)
	event.ErrorMsg = security.MaskSensitive(event.ErrorMsg)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializing audit event: %w", err)
	}

	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}

	return nil
}

// Accepted records a successful mutation.
func (l *Logger) Accepted(ctx context.Context, action Action, userID, planID string, details map[string]interface{}) error {
	return l.Log(ctx, Event{
		Action:  action,
		UserID:  userID,
		PlanID:  planID,
		Details: details,
		Success: true,
	})
}

// Rejected records a refused mutation with its error code.
func (l *Logger) Rejected(ctx context.Context, action Action, userID, planID, code string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return l.Log(ctx, Event{
		Action:    action,
		UserID:    userID,
		PlanID:    planID,
		Success:   false,
		ErrorCode: code,
		ErrorMsg:  msg,
	})
}

// Close closes the underlying writer.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	return l.writer.Close()
}
