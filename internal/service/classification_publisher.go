package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/email-classifier-api/internal/dto"
)

// ClassificationPublisher fans classification events out to subscribers.
type ClassificationPublisher interface {
	PublishClassified(ctx context.Context, event dto.ClassificationEvent) error
}

type brokerPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

// NewClassificationPublisher publishes to the Redis channel
// "<base>:classified" and the NATS subject "<base>.classified". Either
// transport may be nil.
func NewClassificationPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) ClassificationPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":classified"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".classified"
	}

	return &brokerPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "classification_publisher").Logger(),
	}
}

func (p *brokerPublisher) PublishClassified(ctx context.Context, event dto.ClassificationEvent) error {
	if event.Source == "" {
		event.Source = p.nodeID
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			return err
		}
	}

	p.logger.Debug().Str("reference_id", event.ReferenceID).Str("category", event.Category).Msg("classification event published")
	return nil
}
