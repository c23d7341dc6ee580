package announcements

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gemvault/gemvault-backend/pkg/db/models"
	"github.com/gemvault/gemvault-backend/pkg/errors"
)

// Service manages the single storefront announcement row.
type Service interface {
	Publish(ctx context.Context, input PublishInput) (*models.Announcement, error)
	Current(ctx context.Context) (*models.Announcement, error)
	Deactivate(ctx context.Context) error
}

// PublishInput carries the banner content to upsert.
type PublishInput struct {
	Title string
	Body  string
}

type service struct {
	db *gorm.DB
}

// NewService wires the announcement service.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &service{db: db}, nil
}

func (s *service) Publish(ctx context.Context, input PublishInput) (*models.Announcement, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.New(errors.CodeValidation, "title is required")
	}

	row := models.Announcement{
		ID:       models.CurrentAnnouncementID,
		Title:    title,
		Body:     strings.TrimSpace(input.Body),
		IsActive: true,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "body", "is_active", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "upserting announcement")
	}
	return &row, nil
}

func (s *service) Current(ctx context.Context) (*models.Announcement, error) {
	var row models.Announcement
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", models.CurrentAnnouncementID, true).
		First(&row).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "no active announcement")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading announcement")
	}
	return &row, nil
}

func (s *service) Deactivate(ctx context.Context) error {
	res := s.db.WithContext(ctx).
		Model(&models.Announcement{}).
		Where("id = ?", models.CurrentAnnouncementID).
		Update("is_active", false)
	if res.Error != nil {
		return errors.Wrap(errors.CodeInternal, res.Error, "deactivating announcement")
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "no announcement to deactivate")
	}
	return nil
}
