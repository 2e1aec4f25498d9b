package domain

import "time"

// ContentStatus tracks whether a branch-side item has been published to trunk.
type ContentStatus string

const (
	ContentDraft     ContentStatus = "draft"
	ContentPublished ContentStatus = "published"
)

// Content is a single content item inside a branch.
//
// SourceContentID is nil for items created in the branch ("new in branch").
// When non-nil the item shadows a trunk item, and BaseVersionID records the
// trunk version captured when the shadow was created - the common ancestor
// for three-way merge.
type Content struct {
	ID                 uint64        `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	BranchID           uint64        `gorm:"column:branch_id;index" json:"branch_id"`
	Slug               string        `gorm:"column:slug;type:varchar(200);index" json:"slug"`
	Title              string        `gorm:"column:title;type:varchar(255)" json:"title"`
	Category           string        `gorm:"column:category;type:varchar(100)" json:"category,omitempty"`
	Tags               StringList    `gorm:"column:tags;type:json" json:"tags"`
	Status             ContentStatus `gorm:"column:status;type:enum('draft','published');default:'draft'" json:"status"`
	SourceContentID    *uint64       `gorm:"column:source_content_id;index" json:"source_content_id,omitempty"`
	BaseVersionID      *uint64       `gorm:"column:base_version_id" json:"base_version_id,omitempty"`
	CurrentVersionID   *uint64       `gorm:"column:current_version_id" json:"current_version_id,omitempty"`
	PublishedVersionID *uint64       `gorm:"column:published_version_id" json:"published_version_id,omitempty"`
	CreatedAt          time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Content) TableName() string { return "contents" }

// IsNewInBranch reports whether the item was created in the branch rather
// than branched from trunk.
func (c *Content) IsNewInBranch() bool { return c.SourceContentID == nil }

// CreateContentRequest is the API request for creating a content item
type CreateContentRequest struct {
	Slug       string   `json:"slug" binding:"required"`
	Title      string   `json:"title" binding:"required"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Body       string   `json:"body"`
	BodyFormat string   `json:"body_format"`
}

// UpdateContentRequest is the API request for editing a draft item.
// ExpectedVersionID carries the optimistic-concurrency token: the version the
// client last saw. A mismatch rejects the write.
type UpdateContentRequest struct {
	ExpectedVersionID uint64    `json:"expected_version_id" binding:"required"`
	Body              *string   `json:"body"`
	Title             *string   `json:"title"`
	Category          *string   `json:"category"`
	Tags              *[]string `json:"tags"`
	ChangeDescription string    `json:"change_description"`
}
