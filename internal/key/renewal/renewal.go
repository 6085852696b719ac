// Package renewal submits key reissue requests to the issuance engine.
// Submission is fire-and-forget and idempotent: the engine decides whether a
// physical reissue is actually necessary.
package renewal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	id "domopass/pkg/domain"
	"domopass/pkg/requestcontext"
)

// Producer publishes one keyed message. Satisfied by the Kafka producer.
type Producer interface {
	Produce(ctx context.Context, key string, value []byte) error
}

// Kafka submits renewal requests over the issuance topic, keyed by key id so
// repeated requests for one key land on the same partition.
type Kafka struct {
	producer Producer
	logger   *slog.Logger
}

func NewKafka(producer Producer, logger *slog.Logger) *Kafka {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{producer: producer, logger: logger}
}

type request struct {
	UserID      string    `json:"user_id"`
	KeyID       string    `json:"key_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// Log records renewal requests without submitting them anywhere. Used
// when no issuance broker is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Submit logs the renewal request and drops it.
func (l *Log) Submit(ctx context.Context, userID id.UserID, keyID id.KeyID) error {
	l.logger.InfoContext(ctx, "renewal requested without issuance broker, dropped",
		"key_id", keyID.String(),
		"user_id", userID.String(),
	)
	return nil
}

// Submit publishes a renewal request for the key.
func (k *Kafka) Submit(ctx context.Context, userID id.UserID, keyID id.KeyID) error {
	value, err := json.Marshal(request{
		UserID:      userID.String(),
		KeyID:       keyID.String(),
		RequestedAt: requestcontext.Now(ctx),
	})
	if err != nil {
		return fmt.Errorf("marshal renewal request: %w", err)
	}
	if err := k.producer.Produce(ctx, keyID.String(), value); err != nil {
		return fmt.Errorf("submit renewal for key %s: %w", keyID.String(), err)
	}
	k.logger.DebugContext(ctx, "renewal submitted",
		"key_id", keyID.String(),
		"user_id", userID.String(),
	)
	return nil
}
