package announcements

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/pkg/db/models"
	pkgerrors "github.com/gemvault/gemvault-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dsn := "file:announcements_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Announcement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func TestPublishUpsertsSingleRow(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	first, err := svc.Publish(ctx, PublishInput{Title: "Spring drop", Body: "New sapphires landed"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if first.ID != models.CurrentAnnouncementID {
		t.Fatalf("unexpected id %d", first.ID)
	}

	second, err := svc.Publish(ctx, PublishInput{Title: "Winter sale", Body: "  20% off loose stones  "})
	if err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if second.ID != models.CurrentAnnouncementID {
		t.Fatalf("unexpected id %d", second.ID)
	}

	var count int64
	if err := db.Model(&models.Announcement{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single row, got %d", count)
	}

	current, err := svc.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current.Title != "Winter sale" {
		t.Fatalf("unexpected title %q", current.Title)
	}
}

func TestPublishRequiresTitle(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.Publish(context.Background(), PublishInput{Title: "   "})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCurrentAfterDeactivate(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Deactivate(ctx); err == nil {
		t.Fatal("expected error with no announcement")
	}

	if _, err := svc.Publish(ctx, PublishInput{Title: "Flash sale"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := svc.Deactivate(ctx); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := svc.Current(ctx)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	// republishing reactivates the banner in place
	if _, err := svc.Publish(ctx, PublishInput{Title: "Back again"}); err != nil {
		t.Fatalf("republish: %v", err)
	}
	current, err := svc.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current.Title != "Back again" {
		t.Fatalf("unexpected title %q", current.Title)
	}
}
