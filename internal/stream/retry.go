package stream

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RetryHandler retries a failing operation with exponential backoff and dead
// letters the message once the retries are exhausted.
type RetryHandler struct {
	client        *redis.Client
	deadLetterKey string
	maxRetries    int
	baseDelay     time.Duration
}

func NewRetryHandler(client *redis.Client, deadLetterKey string) *RetryHandler {
	return &RetryHandler{
		client:        client,
		deadLetterKey: deadLetterKey,
		maxRetries:    3,
		baseDelay:     2 * time.Second,
	}
}

// RetryWithBackoff runs fn up to maxRetries+1 times, doubling the delay
// between attempts. If every attempt fails, the original message fields are
// pushed to the dead-letter stream and the last error is returned.
func (h *RetryHandler) RetryWithBackoff(ctx context.Context, fn func() error, messageID string, fields map[string]interface{}) error {
	var lastErr error
	delay := h.baseDelay

	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			log.Warn().
				Str("message_id", messageID).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying message processing")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}

	h.deadLetter(ctx, messageID, fields, lastErr)
	return lastErr
}

func (h *RetryHandler) deadLetter(ctx context.Context, messageID string, fields map[string]interface{}, cause error) {
	values := make(map[string]interface{}, len(fields)+3)
	for k, v := range fields {
		values[k] = v
	}
	values["original_message_id"] = messageID
	values["error"] = cause.Error()
	values["failed_at"] = time.Now().Format(time.RFC3339)

	err := h.client.XAdd(ctx, &redis.XAddArgs{
		Stream: h.deadLetterKey,
		Values: values,
	}).Err()
	if err != nil {
		log.Error().Err(err).
			Str("message_id", messageID).
			Msg("Failed to push message to dead-letter stream")
		return
	}

	log.Warn().
		Str("message_id", messageID).
		Str("dead_letter_key", h.deadLetterKey).
		Msg("Message dead-lettered after retries exhausted")
}
