package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SlenderjuniorxD/UPDS-TIM/internal/models"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/vetting"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Consumer reads upload events from the uploads stream and runs the vetting
// pipeline for each one. Events are processed through a consumer group so
// multiple instances can share the stream; crashed deliveries are reclaimed
// from the pending entry list.
type Consumer struct {
	client              *redis.Client
	streamKey           string
	consumerGroup       string
	consumerName        string
	vettingSvc          *vetting.Service
	retryHandler        *RetryHandler
	retentionDuration   time.Duration
	pelRecoveryInterval time.Duration
	cleanupInterval     time.Duration
	lastPELCheck        time.Time
}

func NewConsumer(
	client *redis.Client,
	streamKey string,
	consumerGroup string,
	consumerName string,
	vettingSvc *vetting.Service,
	retryHandler *RetryHandler,
	retentionDuration time.Duration,
) *Consumer {
	return &Consumer{
		client:              client,
		streamKey:           streamKey,
		consumerGroup:       consumerGroup,
		consumerName:        consumerName,
		vettingSvc:          vettingSvc,
		retryHandler:        retryHandler,
		retentionDuration:   retentionDuration,
		pelRecoveryInterval: 30 * time.Second,
		cleanupInterval:     1 * time.Hour,
		lastPELCheck:        time.Now(),
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	if err := c.createConsumerGroup(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create consumer group, may already exist")
	}

	if err := c.recoverPEL(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to recover PEL messages on startup")
	}
	c.lastPELCheck = time.Now()

	go c.runCleanupPeriodically(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.consume(ctx); err != nil {
				log.Error().Err(err).Msg("Error consuming upload events")
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (c *Consumer) createConsumerGroup(ctx context.Context) error {
	// MKSTREAM creates the stream if it doesn't exist yet.
	err := c.client.XGroupCreateMkStream(ctx, c.streamKey, c.consumerGroup, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			log.Debug().
				Str("group", c.consumerGroup).
				Msg("Consumer group already exists")
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Info().
		Str("group", c.consumerGroup).
		Str("stream", c.streamKey).
		Msg("Created consumer group")
	return nil
}

// recoverPEL claims upload events another consumer started but never
// acknowledged, so a crashed instance's work is not lost.
func (c *Consumer) recoverPEL(ctx context.Context) error {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.streamKey,
		Group:  c.consumerGroup,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()

	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("failed to get pending messages: %w", err)
	}

	minIdleTime := 1 * time.Minute
	messageIDs := make([]string, 0, len(pending))
	for _, p := range pending {
		if p.Idle >= minIdleTime {
			messageIDs = append(messageIDs, p.ID)
		}
	}

	if len(messageIDs) == 0 {
		return nil
	}

	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.streamKey,
		Group:    c.consumerGroup,
		Consumer: c.consumerName,
		MinIdle:  minIdleTime,
		Messages: messageIDs,
	}).Result()

	if err != nil {
		return fmt.Errorf("failed to claim messages: %w", err)
	}

	if len(claimed) > 0 {
		log.Info().Int("claimed", len(claimed)).Msg("Claimed idle PEL messages, processing")
	}

	for _, msg := range claimed {
		if err := c.processMessage(ctx, &msg); err != nil {
			log.Error().Err(err).
				Str("message_id", msg.ID).
				Msg("Failed to process claimed PEL message")
		}
	}

	return nil
}

func (c *Consumer) consume(ctx context.Context) error {
	if time.Since(c.lastPELCheck) > c.pelRecoveryInterval {
		if err := c.recoverPEL(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to recover PEL messages")
		}
		c.lastPELCheck = time.Now()
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.consumerGroup,
		Consumer: c.consumerName,
		Streams:  []string{c.streamKey, ">"},
		Count:    10,
		Block:    time.Second,
	}).Result()

	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		if stream.Stream != c.streamKey {
			continue
		}
		for _, msg := range stream.Messages {
			if err := c.processMessage(ctx, &msg); err != nil {
				log.Error().Err(err).
					Str("message_id", msg.ID).
					Msg("Failed to process upload event")
			}
		}
	}

	return nil
}

func (c *Consumer) processMessage(ctx context.Context, msg *redis.XMessage) error {
	fields := make(map[string]string)
	for key, val := range msg.Values {
		if value, ok := val.(string); ok {
			fields[key] = value
		}
	}

	event, err := ParseUploadEvent(&StreamMessage{ID: msg.ID, Fields: fields})
	if err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to parse upload event")
		// Acknowledge malformed events so they are not redelivered forever.
		c.acknowledge(ctx, msg.ID)
		return err
	}

	fieldsMap := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		fieldsMap[k] = v
	}

	err = c.retryHandler.RetryWithBackoff(ctx, func() error {
		return c.runVetting(ctx, event)
	}, msg.ID, fieldsMap)

	if err != nil {
		// Already dead-lettered by the retry handler.
		return err
	}

	return c.acknowledge(ctx, msg.ID)
}

func (c *Consumer) runVetting(ctx context.Context, event *models.VetRequest) error {
	result, err := c.vettingSvc.Vet(ctx, *event)
	if err != nil {
		return err
	}

	log.Info().
		Str("submissionId", event.SubmissionID).
		Str("outcome", string(result.Status)).
		Int("score", result.Score).
		Msg("Vetting completed from upload event")
	return nil
}

// cleanupOldMessages trims events older than the retention window.
func (c *Consumer) cleanupOldMessages(ctx context.Context) error {
	cutoffTime := time.Now().Add(-c.retentionDuration)
	minID := fmt.Sprintf("%d-0", cutoffTime.UnixMilli())

	trimmed, err := c.client.XTrimMinID(ctx, c.streamKey, minID).Result()
	if err != nil {
		return fmt.Errorf("failed to trim stream: %w", err)
	}

	if trimmed > 0 {
		log.Debug().
			Int64("trimmed", trimmed).
			Dur("retention", c.retentionDuration).
			Msg("Trimmed old upload events from stream")
	}

	return nil
}

func (c *Consumer) runCleanupPeriodically(ctx context.Context) {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	if err := c.cleanupOldMessages(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to run initial stream cleanup")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.cleanupOldMessages(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old upload events")
			}
		}
	}
}

func (c *Consumer) acknowledge(ctx context.Context, messageID string) error {
	err := c.client.XAck(ctx, c.streamKey, c.consumerGroup, messageID).Err()
	if err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to acknowledge message")
		return err
	}
	return nil
}
