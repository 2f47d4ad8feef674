// Package photos implements the one-time photo migration pass: any baby
// whose photo still points at a local file gets it uploaded to remote
// storage, and the reference rewritten to the returned URL.
package photos

import (
	"context"

	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
	"github.com/AndreasArnolfo/Babyrons/pkg/clients/media"
)

// Service uploads local photos through the media client.
type Service struct {
	uploader media.Client
	logger   *zap.Logger
}

// NewService wires a migration service instance.
func NewService(uploader media.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{uploader: uploader, logger: logger}
}

// Migrate uploads each baby's local photo and returns the new URL per
// baby id. Failures are logged and the baby is skipped; the pass is
// best-effort and will simply not rewrite that reference.
func (s *Service) Migrate(ctx context.Context, babies []models.Baby) map[string]string {
	migrated := make(map[string]string)
	for _, baby := range babies {
		if !baby.HasLocalPhoto() {
			continue
		}
		url, err := s.uploader.Upload(ctx, *baby.Photo)
		if err != nil {
			s.logger.Warn("photo upload failed",
				zap.String("baby", baby.ID),
				zap.Error(err))
			continue
		}
		migrated[baby.ID] = url
		s.logger.Info("photo migrated", zap.String("baby", baby.ID))
	}
	return migrated
}
