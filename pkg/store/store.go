// Package store provides session and export-job state persistence
package store

import (
	"context"
	"errors"
	"time"

	"github.com/clipforge/clipforge/pkg/assistant"
	"github.com/clipforge/clipforge/pkg/project"
)

var (
	// ErrSessionNotFound is returned when a session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrJobNotFound is returned when an export job does not exist
	ErrJobNotFound = errors.New("export job not found")

	// ErrJobExists is returned when creating a job with a taken ID
	ErrJobExists = errors.New("export job already exists")

	// ErrInvalidID is returned for empty identifiers
	ErrInvalidID = errors.New("invalid identifier")
)

// Session is one editing session: the project being built plus the
// conversation kept for assistant context.
type Session struct {
	ID      string               `json:"id"`
	Created time.Time            `json:"created_at"`
	Updated time.Time            `json:"updated_at"`
	Project *project.Project     `json:"project"`
	History []assistant.Exchange `json:"history,omitempty"`
}

// JobStatus is the lifecycle state of an export job
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status is final
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ExportJob tracks one asynchronous export
type ExportJob struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Format    string    `json:"format"`
	Status    JobStatus `json:"status"`
	// Progress is 0-100
	Progress float64 `json:"progress"`
	// OutputPath is set once the job completes
	OutputPath string `json:"output_path,omitempty"`
	// Error carries the stage-labeled failure message
	Error   string    `json:"error,omitempty"`
	Created time.Time `json:"created_at"`
	Updated time.Time `json:"updated_at"`
}

// SessionStore owns editing sessions. Mutations run through Update so
// concurrent edits to one session are serialized.
type SessionStore interface {
	// CreateSession registers a fresh session with an empty project
	CreateSession(ctx context.Context, session *Session) error

	// GetSession returns a snapshot; callers never see live state
	GetSession(ctx context.Context, id string) (*Session, error)

	// UpdateSession applies mutate under the session's lock. An error
	// from mutate aborts the update.
	UpdateSession(ctx context.Context, id string, mutate func(*Session) error) error

	// DeleteSession removes a session
	DeleteSession(ctx context.Context, id string) error
}

// JobStore owns export jobs
type JobStore interface {
	CreateJob(ctx context.Context, job *ExportJob) error
	GetJob(ctx context.Context, id string) (*ExportJob, error)

	// UpdateJob applies mutate atomically
	UpdateJob(ctx context.Context, id string, mutate func(*ExportJob)) error

	DeleteJob(ctx context.Context, id string) error

	// PurgeExpired removes terminal jobs last touched before the
	// cutoff and returns them so the caller can delete their artifacts
	PurgeExpired(ctx context.Context, cutoff time.Time) ([]*ExportJob, error)
}

// Store is the combined persistence surface
type Store interface {
	SessionStore
	JobStore
	Close() error
}
