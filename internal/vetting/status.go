package vetting

import (
	"context"
	"fmt"
	"time"

	redisInfra "github.com/SlenderjuniorxD/UPDS-TIM/internal/infra/redis"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/models"
	"github.com/redis/go-redis/v9"
)

const statusTTL = 12 * time.Hour

// RedisStatus publishes vetting progress to Redis so the portal can show
// where a submission is in the pipeline without hitting MongoDB.
type RedisStatus struct {
	client *redisInfra.Client
}

func NewRedisStatus(client *redisInfra.Client) *RedisStatus {
	return &RedisStatus{client: client}
}

func statusKey(submissionID string) string {
	return "vetting_status:" + submissionID
}

func (r *RedisStatus) Publish(ctx context.Context, submissionID string, step models.Step) error {
	validSteps := map[models.Step]bool{
		models.StepIdle:      true,
		models.StepSubmitted: true,
		models.StepScanning:  true,
		models.StepScoring:   true,
		models.StepCompleted: true,
		models.StepFailed:    true,
	}
	if !validSteps[step] {
		return fmt.Errorf("unknown step: %s", step)
	}

	err := r.client.Set(ctx, statusKey(submissionID), string(step), statusTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to update status in Redis: %w", err)
	}

	return nil
}

// Current returns the last published step, or idle when none is recorded.
func (r *RedisStatus) Current(ctx context.Context, submissionID string) (models.Step, error) {
	value, err := r.client.Get(ctx, statusKey(submissionID)).Result()
	if err == redis.Nil {
		return models.StepIdle, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read status from Redis: %w", err)
	}

	return models.Step(value), nil
}
