package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/email-classifier-api/internal/dto"
)

func TestClassificationPublisherRedis(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := redisClient.Subscribe(ctx, "mailsort:classified")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewClassificationPublisher(redisClient, nil, "mailsort", testLogger())
	require.NoError(t, publisher.PublishClassified(ctx, dto.ClassificationEvent{
		ReferenceID: "ref-1",
		Category:    "Incident",
		MaskedEmail: "Hello [full_name]",
	}))

	select {
	case msg := <-sub.Channel():
		var event dto.ClassificationEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		require.Equal(t, "ref-1", event.ReferenceID)
		require.Equal(t, "Incident", event.Category)
		require.NotEmpty(t, event.Source)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestClassificationPublisherWithoutTransports(t *testing.T) {
	publisher := NewClassificationPublisher(nil, nil, "", testLogger())
	require.NoError(t, publisher.PublishClassified(context.Background(), dto.ClassificationEvent{ReferenceID: "x"}))
}
