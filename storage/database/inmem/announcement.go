package inmemdb

import (
	"context"

	"github.com/dusabe/tathmini/core/announcement"
)

type announcementRepository struct {
	db *DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *DB) *announcementRepository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, ann announcement.Announcement) (announcement.Announcement, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.announcements = append(repo.db.announcements, ann)
	return ann, nil
}

func (repo *announcementRepository) QueryAllAnnouncements(ctx context.Context) ([]announcement.Announcement, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	// newest first
	anns := make([]announcement.Announcement, 0, len(repo.db.announcements))
	for i := len(repo.db.announcements) - 1; i >= 0; i-- {
		anns = append(anns, repo.db.announcements[i])
	}
	return anns, nil
}
