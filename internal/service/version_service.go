package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/inkline/inkline-backend/internal/common"
	"github.com/inkline/inkline-backend/internal/domain"
	"github.com/inkline/inkline-backend/internal/repository"
	"gorm.io/gorm"
)

// timestampRetries bounds the collision retry loop on version timestamps.
const timestampRetries = 3

// Checksum returns the hex sha-256 of the body. Pure function of the bytes.
func Checksum(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// CreateVersionInput carries everything needed to append one version.
type CreateVersionInput struct {
	ContentID         uint64
	Body              string
	BodyFormat        string
	Metadata          domain.MetadataSnapshot
	ChangeDescription string
	ParentVersionID   *uint64
	AuthorID          string
	AuthorType        domain.AuthorType
	IsRevert          bool
	RevertedFromID    *uint64
}

// VersionService is the append-only version chain store. Versions are never
// mutated; reverting creates a new version carrying provenance.
type VersionService interface {
	CreateVersion(input CreateVersionInput) (*domain.ContentVersion, error)
	GetVersions(contentID uint64, page, perPage int) ([]*domain.ContentVersion, int64, error)
	GetVersion(contentID, versionID uint64) (*domain.ContentVersion, error)
	Revert(contentID, targetVersionID uint64, changeDescription, actorID string) (*domain.ContentVersion, error)
}

type versionService struct {
	versions repository.VersionRepository
	contents repository.ContentRepository
	audit    AuditSink
}

// NewVersionService creates a new VersionService
func NewVersionService(versions repository.VersionRepository, contents repository.ContentRepository, audit AuditSink) VersionService {
	return &versionService{versions: versions, contents: contents, audit: audit}
}

// buildVersion fills the derived fields: byte size, checksum, timestamp.
func buildVersion(input CreateVersionInput) *domain.ContentVersion {
	bodyFormat := input.BodyFormat
	if bodyFormat == "" {
		bodyFormat = "markdown"
	}
	authorType := input.AuthorType
	if authorType == "" {
		authorType = domain.AuthorUser
	}
	return &domain.ContentVersion{
		ContentID:         input.ContentID,
		ParentVersionID:   input.ParentVersionID,
		Body:              input.Body,
		BodyFormat:        bodyFormat,
		MetadataSnapshot:  input.Metadata,
		ChangeDescription: input.ChangeDescription,
		AuthorID:          input.AuthorID,
		AuthorType:        authorType,
		ByteSize:          len(input.Body),
		Checksum:          Checksum(input.Body),
		IsRevert:          input.IsRevert,
		RevertedFromID:    input.RevertedFromID,
		VersionTimestamp:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

// withTimestampRetry runs attempt, and on a duplicate-key violation advances
// the candidate timestamp by one microsecond (the smallest increment the
// column stores) and tries again, up to timestampRetries times. Retries are
// silent; exhaustion is fatal for the write.
func withTimestampRetry(version *domain.ContentVersion, attempt func() error) error {
	var err error
	for try := 0; ; try++ {
		err = attempt()
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || try >= timestampRetries {
			break
		}
		version.VersionTimestamp = version.VersionTimestamp.Add(time.Microsecond)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: content %d", common.ErrVersionCollision, version.ContentID)
	}
	return err
}

func (s *versionService) CreateVersion(input CreateVersionInput) (*domain.ContentVersion, error) {
	version := buildVersion(input)
	if err := withTimestampRetry(version, func() error {
		return s.versions.CreateAndRepoint(version)
	}); err != nil {
		return nil, err
	}
	return version, nil
}

func (s *versionService) GetVersions(contentID uint64, page, perPage int) ([]*domain.ContentVersion, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.versions.FindByContent(contentID, page, perPage)
}

func (s *versionService) GetVersion(contentID, versionID uint64) (*domain.ContentVersion, error) {
	version, err := s.versions.FindByContentAndID(contentID, versionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrVersionNotFound
		}
		return nil, err
	}
	return version, nil
}

// Revert appends a new version whose body is copied from the target version.
// History is never rewritten; the chain only grows.
func (s *versionService) Revert(contentID, targetVersionID uint64, changeDescription, actorID string) (*domain.ContentVersion, error) {
	target, err := s.GetVersion(contentID, targetVersionID)
	if err != nil {
		return nil, err
	}

	content, err := s.contents.FindByID(contentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrContentNotFound
		}
		return nil, err
	}

	if changeDescription == "" {
		changeDescription = fmt.Sprintf("revert to version %d", targetVersionID)
	}

	version, err := s.CreateVersion(CreateVersionInput{
		ContentID:         contentID,
		Body:              target.Body,
		BodyFormat:        target.BodyFormat,
		Metadata:          target.MetadataSnapshot,
		ChangeDescription: changeDescription,
		ParentVersionID:   content.CurrentVersionID,
		AuthorID:          actorID,
		AuthorType:        domain.AuthorUser,
		IsRevert:          true,
		RevertedFromID:    &target.ID,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(AuditEvent{
		Type:      AuditVersionReverted,
		ContentID: contentID,
		ActorID:   actorID,
		Metadata:  map[string]interface{}{"reverted_from": targetVersionID, "new_version": version.ID},
	})
	return version, nil
}
