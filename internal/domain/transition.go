package domain

import "time"

// TransitionEvent is a lifecycle event applied to a branch.
type TransitionEvent string

const (
	EventSubmitForReview TransitionEvent = "SUBMIT_FOR_REVIEW"
	EventRequestChanges  TransitionEvent = "REQUEST_CHANGES"
	EventApprove         TransitionEvent = "APPROVE"
	EventPublish         TransitionEvent = "PUBLISH"
	EventArchive         TransitionEvent = "ARCHIVE"
)

// Actor roles recognized by the lifecycle guards. Roles come from the
// external permission source; the state machine only reads them.
const (
	RoleAdmin     = "admin"
	RolePublisher = "publisher"
)

// TransitionResult is the structured outcome of a transition attempt.
// A failed guard mutates nothing; Reason carries the first failing guard's
// explanation for the caller to render.
type TransitionResult struct {
	Allowed   bool         `json:"allowed"`
	FromState BranchState  `json:"from_state"`
	ToState   BranchState  `json:"to_state,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Merge     *MergeResult `json:"merge,omitempty"`
}

// BranchTransition is an append-only audit row for every transition attempt,
// successful or not.
type BranchTransition struct {
	ID        uint64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	BranchID  uint64      `gorm:"column:branch_id;index" json:"branch_id"`
	Event     string      `gorm:"column:event;type:varchar(30)" json:"event"`
	FromState BranchState `gorm:"column:from_state;type:varchar(20)" json:"from_state"`
	ToState   BranchState `gorm:"column:to_state;type:varchar(20)" json:"to_state"`
	ActorID   string      `gorm:"column:actor_id;type:varchar(50)" json:"actor_id"`
	Success   bool        `gorm:"column:success;default:false" json:"success"`
	Reason    string      `gorm:"column:reason;type:varchar(500)" json:"reason,omitempty"`
	Metadata  JSONMap     `gorm:"column:metadata;type:json" json:"metadata,omitempty"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (BranchTransition) TableName() string { return "branch_transitions" }

// ReviewDecision is a reviewer's verdict on a branch.
type ReviewDecision string

const (
	DecisionApproved         ReviewDecision = "approved"
	DecisionChangesRequested ReviewDecision = "changes_requested"
)

// Review records one reviewer's decision for the current review cycle.
// One row per (branch, reviewer); re-reviewing updates the row, and
// SUBMIT_FOR_REVIEW clears the table so each cycle starts fresh.
type Review struct {
	ID         uint64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	BranchID   uint64         `gorm:"column:branch_id;uniqueIndex:idx_branch_reviewer" json:"branch_id"`
	ReviewerID string         `gorm:"column:reviewer_id;type:varchar(50);uniqueIndex:idx_branch_reviewer" json:"reviewer_id"`
	Decision   ReviewDecision `gorm:"column:decision;type:enum('approved','changes_requested')" json:"decision"`
	Comment    string         `gorm:"column:comment;type:text" json:"comment,omitempty"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Review) TableName() string { return "branch_reviews" }
