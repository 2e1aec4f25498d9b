package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// BranchState is the lifecycle state of a branch.
type BranchState string

const (
	BranchDraft     BranchState = "draft"
	BranchReview    BranchState = "review"
	BranchApproved  BranchState = "approved"
	BranchPublished BranchState = "published"
	BranchArchived  BranchState = "archived"
)

// StringList is a JSON-encoded string array column.
type StringList []string

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan StringList: not []byte")
	}
	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

// Contains reports whether the list holds the given value
func (l StringList) Contains(v string) bool {
	for _, s := range l {
		if s == v {
			return true
		}
	}
	return false
}

// Branch is an isolated draft workspace for content changes.
// The trunk branch (IsTrunk=true) is the canonical published branch that
// other branches converge into; it never moves through the lifecycle.
type Branch struct {
	ID                uint64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name              string      `gorm:"column:name;type:varchar(200)" json:"name"`
	Description       string      `gorm:"column:description;type:text" json:"description,omitempty"`
	State             BranchState `gorm:"column:state;type:enum('draft','review','approved','published','archived');default:'draft';index" json:"state"`
	IsTrunk           bool        `gorm:"column:is_trunk;default:false" json:"is_trunk"`
	OwnerID           string      `gorm:"column:owner_id;type:varchar(50);index" json:"owner_id"`
	Reviewers         StringList  `gorm:"column:reviewers;type:json" json:"reviewers"`
	Collaborators     StringList  `gorm:"column:collaborators;type:json" json:"collaborators"`
	RequiredApprovals int         `gorm:"column:required_approvals;default:1" json:"required_approvals"`
	SubmittedAt       *time.Time  `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	ApprovedAt        *time.Time  `gorm:"column:approved_at" json:"approved_at,omitempty"`
	PublishedAt       *time.Time  `gorm:"column:published_at" json:"published_at,omitempty"`
	ArchivedAt        *time.Time  `gorm:"column:archived_at" json:"archived_at,omitempty"`
	CreatedAt         time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Branch) TableName() string { return "branches" }

// IsReviewer reports whether the user is a designated reviewer
func (b *Branch) IsReviewer(userID string) bool {
	return b.Reviewers.Contains(userID)
}

// IsCollaborator reports whether the user may edit branch content
func (b *Branch) IsCollaborator(userID string) bool {
	return b.OwnerID == userID || b.Collaborators.Contains(userID)
}

// CreateBranchRequest is the API request for creating a branch
type CreateBranchRequest struct {
	Name              string   `json:"name" binding:"required"`
	Description       string   `json:"description"`
	Reviewers         []string `json:"reviewers"`
	Collaborators     []string `json:"collaborators"`
	RequiredApprovals int      `json:"required_approvals"`
}
