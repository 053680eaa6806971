package notify

import (
	"context"

	"github.com/SlenderjuniorxD/UPDS-TIM/internal/models"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/repository"
	"github.com/rs/zerolog/log"
)

// Service delivers notifications to portal users. Delivery is fire-and-forget
// from the caller's perspective: failures are logged, never propagated.
type Service struct {
	repo *repository.NotificationsRepository
}

func NewService(repo *repository.NotificationsRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Send(ctx context.Context, userID, title, message string, notifType models.NotificationType) {
	if userID == "" {
		return
	}

	notification := &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    notifType,
		IsRead:  false,
	}

	if err := s.repo.Insert(ctx, notification); err != nil {
		log.Error().Err(err).
			Str("userId", userID).
			Str("title", title).
			Msg("Failed to deliver notification")
	}
}
