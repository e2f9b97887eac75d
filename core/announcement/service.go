package announcement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		// QueryAllAnnouncements returns announcements newest first.
		QueryAllAnnouncements(ctx context.Context) ([]Announcement, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, na NewAnnouncement) (Announcement, error) {
	ann := Announcement{
		ID:        uuid.New(),
		Title:     na.Title,
		Content:   na.Content,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateAnnouncement(ctx, ann)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Announcement, error) {
	return svc.repo.QueryAllAnnouncements(ctx)
}
