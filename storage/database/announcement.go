package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/dusabe/tathmini/core/announcement"
)

type announcementRow struct {
	ID        uuid.UUID `db:"id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

type announcementRepository struct {
	db *sqlx.DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *sql.DB) *announcementRepository {
	return &announcementRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, ann announcement.Announcement) (announcement.Announcement, error) {
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO announcement (id, title, content, created_at) VALUES ($1, $2, $3, $4)",
		ann.ID, ann.Title, ann.Content, ann.CreatedAt.UTC())
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return ann, nil
}

func (repo *announcementRepository) QueryAllAnnouncements(ctx context.Context) ([]announcement.Announcement, error) {
	var rows []announcementRow
	err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM announcement ORDER BY created_at DESC")
	if err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	anns := make([]announcement.Announcement, 0, len(rows))
	for _, row := range rows {
		anns = append(anns, announcement.Announcement(row))
	}
	return anns, nil
}
