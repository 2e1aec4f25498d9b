package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// AuthorType distinguishes user edits from system-generated versions
// (merges, rebases, resolutions).
type AuthorType string

const (
	AuthorUser   AuthorType = "user"
	AuthorSystem AuthorType = "system"
)

// MetadataSnapshot captures the item's metadata at the time a version was
// written, stored as a JSON column.
type MetadataSnapshot struct {
	Title    string   `json:"title"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Scan implements sql.Scanner
func (m *MetadataSnapshot) Scan(value interface{}) error {
	if value == nil {
		*m = MetadataSnapshot{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan MetadataSnapshot: not []byte")
	}
	return json.Unmarshal(bytes, m)
}

// Value implements driver.Valuer
func (m MetadataSnapshot) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Equal compares snapshots field by field
func (m MetadataSnapshot) Equal(o MetadataSnapshot) bool {
	if m.Title != o.Title || m.Category != o.Category || len(m.Tags) != len(o.Tags) {
		return false
	}
	for i := range m.Tags {
		if m.Tags[i] != o.Tags[i] {
			return false
		}
	}
	return true
}

// ContentVersion is one immutable link in a content item's version chain.
// ParentVersionID points at the previous version; the chain is append-only
// and a revert is a new version carrying provenance, never a rewrite.
// VersionTimestamp is the logical ordering key, unique per content item
// (enforced by retry-on-collision at write time, not by locking).
type ContentVersion struct {
	ID                uint64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ContentID         uint64           `gorm:"column:content_id;index;uniqueIndex:idx_content_version_ts" json:"content_id"`
	ParentVersionID   *uint64          `gorm:"column:parent_version_id" json:"parent_version_id,omitempty"`
	Body              string           `gorm:"column:body;type:longtext" json:"body"`
	BodyFormat        string           `gorm:"column:body_format;type:varchar(30);default:'markdown'" json:"body_format"`
	MetadataSnapshot  MetadataSnapshot `gorm:"column:metadata_snapshot;type:json" json:"metadata_snapshot"`
	ChangeDescription string           `gorm:"column:change_description;type:varchar(500)" json:"change_description,omitempty"`
	AuthorID          string           `gorm:"column:author_id;type:varchar(50)" json:"author_id"`
	AuthorType        AuthorType       `gorm:"column:author_type;type:enum('user','system');default:'user'" json:"author_type"`
	ByteSize          int              `gorm:"column:byte_size" json:"byte_size"`
	Checksum          string           `gorm:"column:checksum;type:char(64)" json:"checksum"`
	IsRevert          bool             `gorm:"column:is_revert;default:false" json:"is_revert"`
	RevertedFromID    *uint64          `gorm:"column:reverted_from_id" json:"reverted_from_id,omitempty"`
	VersionTimestamp  time.Time        `gorm:"column:version_timestamp;type:timestamp(6);uniqueIndex:idx_content_version_ts" json:"version_timestamp"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ContentVersion) TableName() string { return "content_versions" }
