package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ConflictType identifies which part of an item is in conflict.
type ConflictType string

const (
	ConflictContent  ConflictType = "content"
	ConflictMetadata ConflictType = "metadata"
	ConflictBoth     ConflictType = "both"
)

// ConflictResolutionMode selects how a conflict is resolved.
type ConflictResolutionMode string

const (
	ResolveOurs   ConflictResolutionMode = "ours"
	ResolveTheirs ConflictResolutionMode = "theirs"
	ResolveManual ConflictResolutionMode = "manual"
)

// Conflict is a materialized conflict between a branch item and trunk,
// computed during a merge preview or rebase pass. Ours is trunk's side,
// theirs is the branch's side.
type Conflict struct {
	ContentID       uint64           `json:"content_id"`
	Slug            string           `json:"slug"`
	Title           string           `json:"title"`
	ConflictType    ConflictType     `json:"conflict_type"`
	BaseVersionID   uint64           `json:"base_version_id"`
	OursVersionID   uint64           `json:"ours_version_id"`
	TheirsVersionID uint64           `json:"theirs_version_id"`
	OursBody        string           `json:"ours_body"`
	TheirsBody      string           `json:"theirs_body"`
	OursMetadata    MetadataSnapshot `json:"ours_metadata"`
	TheirsMetadata  MetadataSnapshot `json:"theirs_metadata"`
	ConflictMarkers string           `json:"conflict_markers,omitempty"`
}

// AutoMergeReason explains why an item merges cleanly.
type AutoMergeReason string

const (
	// AutoMergeUnchanged - the branch never diverged from the base.
	AutoMergeUnchanged AutoMergeReason = "unchanged"
	// AutoMergeModified - the branch changed and wins cleanly.
	AutoMergeModified AutoMergeReason = "modified"
)

// AutoMergeItem is a branch item that reconciles with trunk without conflict.
// MergedBody is nil when detection degraded and no three-way result exists;
// an empty merged body is a real result (trunk emptied the item) and must be
// kept apart from that.
type AutoMergeItem struct {
	ContentID  uint64          `json:"content_id"`
	Slug       string          `json:"slug"`
	Reason     AutoMergeReason `json:"reason"`
	MergedBody *string         `json:"-"`
}

// NewItem is a branch item with no trunk counterpart
type NewItem struct {
	ContentID uint64 `json:"content_id"`
	Slug      string `json:"slug"`
	Title     string `json:"title"`
}

// MergePreview is the result of scanning a branch against trunk.
// CanMerge is true iff Conflicts is empty; it gates the PUBLISH transition.
type MergePreview struct {
	CanMerge      bool            `json:"can_merge"`
	Conflicts     []Conflict      `json:"conflicts"`
	AutoMergeable []AutoMergeItem `json:"auto_mergeable"`
	NewInBranch   []NewItem       `json:"new_in_branch"`
}

// MergedContentInfo records one item converged into trunk
type MergedContentInfo struct {
	ContentID      uint64 `json:"content_id"`
	TrunkContentID uint64 `json:"trunk_content_id"`
	Slug           string `json:"slug"`
	VersionID      uint64 `json:"version_id"`
	Created        bool   `json:"created"`
}

// MergeResult is the outcome of converging a branch into trunk
type MergeResult struct {
	Success       bool                `json:"success"`
	MergedCount   int                 `json:"merged_count"`
	ConflictCount int                 `json:"conflict_count"`
	Conflicts     []Conflict          `json:"conflicts,omitempty"`
	MergedContent []MergedContentInfo `json:"merged_content,omitempty"`
}

// ResolveConflictRequest is the API request for resolving one conflict.
// Manual resolution requires MergedBody; ours/theirs pick a side verbatim.
type ResolveConflictRequest struct {
	ContentID      uint64                 `json:"content_id" binding:"required"`
	Resolution     ConflictResolutionMode `json:"resolution" binding:"required"`
	MergedBody     *string                `json:"merged_body"`
	MergedMetadata *MetadataSnapshot      `json:"merged_metadata"`
}

// JSONMap is a free-form JSON object column.
type JSONMap map[string]interface{}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan JSONMap: not []byte")
	}
	return json.Unmarshal(bytes, m)
}

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(map[string]interface{}{})
	}
	return json.Marshal(m)
}

// MergeHistory is an append-only ledger row recording one content item's
// convergence. Rows are never mutated or deleted; the table is the
// provenance trail for everything that ever reached trunk.
type MergeHistory struct {
	ID                 uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ContentID          uint64    `gorm:"column:content_id;index" json:"content_id"`
	OperationType      string    `gorm:"column:operation_type;type:varchar(30);default:'merge'" json:"operation_type"`
	SourceBranchID     uint64    `gorm:"column:source_branch_id;index" json:"source_branch_id"`
	TargetBranchID     uint64    `gorm:"column:target_branch_id" json:"target_branch_id"`
	BaseVersionID      *uint64   `gorm:"column:base_version_id" json:"base_version_id,omitempty"`
	SourceVersionID    *uint64   `gorm:"column:source_version_id" json:"source_version_id,omitempty"`
	ResultVersionID    *uint64   `gorm:"column:result_version_id" json:"result_version_id,omitempty"`
	HadConflict        bool      `gorm:"column:had_conflict;default:false" json:"had_conflict"`
	ConflictResolution string    `gorm:"column:conflict_resolution;type:enum('auto','manual');default:'auto'" json:"conflict_resolution"`
	ActorID            string    `gorm:"column:actor_id;type:varchar(50)" json:"actor_id"`
	Metadata           JSONMap   `gorm:"column:metadata;type:json" json:"metadata,omitempty"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (MergeHistory) TableName() string { return "merge_history" }
