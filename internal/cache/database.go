package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/issuerelay/internal/issue"
	"github.com/charlesng35/issuerelay/internal/models"
)

const identityClause = "owner = ? AND repo = ? AND number = ?"

// DatabaseStore implements PersistentStore on the primary SQL database.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore constructs a database-backed store. It fails when db is nil.
func NewDatabaseStore(db *gorm.DB) (*DatabaseStore, error) {
	if db == nil {
		return nil, errStoreNotInitialised
	}
	return &DatabaseStore{db: db, now: time.Now}, nil
}

func (s *DatabaseStore) ready(ctx context.Context) (context.Context, error) {
	if s == nil || s.db == nil {
		return nil, errStoreNotInitialised
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, nil
}

func (s *DatabaseStore) utcNow() time.Time {
	return s.now().UTC()
}

// GetLive loads the row for the identity when it has not expired. Expired rows are left
// for PurgeExpired.
func (s *DatabaseStore) GetLive(ctx context.Context, owner, repo string, number int) (*issue.Issue, bool, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, false, err
	}

	var row models.CachedIssue
	err = s.db.WithContext(ctx).
		Where(identityClause, owner, repo, number).
		Where("expires_at > ?", s.utcNow()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	record := row.Issue()
	if err := record.Validate(); err != nil {
		return nil, false, fmt.Errorf("decode %s/%s#%d: %w", owner, repo, number, err)
	}
	return record, true, nil
}

// Upsert inserts or replaces the row for the identity.
func (s *DatabaseStore) Upsert(ctx context.Context, owner, repo string, number int, record *issue.Issue, expiresAt time.Time) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	if err := record.Validate(); err != nil {
		return err
	}

	row := models.NewCachedIssue(owner, repo, number, record, s.utcNow(), expiresAt)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner"}, {Name: "repo"}, {Name: "number"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "body", "state", "draft", "author_login", "author_avatar_url",
				"labels", "comments", "html_url", "created_at", "updated_at",
				"cached_at", "expires_at",
			}),
		}).Create(&row).Error
}

// Delete removes the row for the identity. A missing row is not an error.
func (s *DatabaseStore) Delete(ctx context.Context, owner, repo string, number int) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Where(identityClause, owner, repo, number).Delete(&models.CachedIssue{}).Error
}

// DeleteAll removes every cached row.
func (s *DatabaseStore) DeleteAll(ctx context.Context) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.CachedIssue{}).Error
}

// CountLive counts rows that have not expired.
func (s *DatabaseStore) CountLive(ctx context.Context) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	err = s.db.WithContext(ctx).
		Model(&models.CachedIssue{}).
		Where("expires_at > ?", s.utcNow()).
		Count(&count).Error
	return count, err
}

// PurgeExpired deletes rows whose expiry has passed.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.utcNow()).
		Delete(&models.CachedIssue{})
	return result.RowsAffected, result.Error
}
