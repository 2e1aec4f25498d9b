package service

import (
	"time"

	"github.com/inkline/inkline-backend/pkg/logger"
)

// AuditEvent is a fire-and-forget record handed to the external audit sink.
type AuditEvent struct {
	Type      string                 `json:"type"`
	BranchID  uint64                 `json:"branch_id,omitempty"`
	ContentID uint64                 `json:"content_id,omitempty"`
	ActorID   string                 `json:"actor_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	At        time.Time              `json:"at"`
}

// Audit event types
const (
	AuditBranchTransition = "branch.transition"
	AuditContentMerged    = "content.merged"
	AuditConflictResolved = "conflict.resolved"
	AuditRebaseStarted    = "rebase.started"
	AuditRebaseCompleted  = "rebase.completed"
	AuditRebaseAborted    = "rebase.aborted"
	AuditVersionReverted  = "version.reverted"
)

// AuditSink receives audit events. Implementations must never block the
// caller and must never return a failure into a core operation.
type AuditSink interface {
	Record(event AuditEvent)
}

// logAuditSink writes audit events to the structured log. Delivery to a
// durable audit store is the external collaborator's job; this sink is the
// default single-process implementation.
type logAuditSink struct{}

// NewLogAuditSink creates an audit sink backed by the structured logger
func NewLogAuditSink() AuditSink {
	return &logAuditSink{}
}

func (s *logAuditSink) Record(event AuditEvent) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	logger.GetLogger().Info().
		Str("audit_type", event.Type).
		Uint64("branch_id", event.BranchID).
		Uint64("content_id", event.ContentID).
		Str("actor_id", event.ActorID).
		Interface("metadata", event.Metadata).
		Time("at", event.At).
		Msg("audit")
}

// NopAuditSink discards events; used in tests
type NopAuditSink struct{}

func (NopAuditSink) Record(AuditEvent) {}
