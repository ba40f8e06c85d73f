package store

import (
	"context"

	"github.com/google/uuid"

	"volunteerverse/services/web/internal/models"
)

func (s *Store) InsertAudit(ctx context.Context, entry *models.AuditLog) error {
	orm, cancel := s.orm(ctx)
	defer cancel()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return translate(orm.Create(entry).Error)
}
