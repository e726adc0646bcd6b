package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	routingKey  string
	body        []byte
	contentType string
	err         error
}

func (b *fakeBroker) PublishWithRetry(_ context.Context, routingKey string, body []byte, contentType string) error {
	b.routingKey = routingKey
	b.body = body
	b.contentType = contentType
	return b.err
}

func TestNew(t *testing.T) {
	e := New(TypeTaskAccepted, map[string]any{"jobId": "j1"})

	_, err := uuid.Parse(e.ID)
	require.NoError(t, err)
	assert.Equal(t, TypeTaskAccepted, e.Type)
	assert.False(t, e.OccurredAt.IsZero())
	assert.Equal(t, "j1", e.Data["jobId"])
	assert.NotEqual(t, e.ID, New(TypeTaskAccepted, nil).ID)
}

func TestRabbitPublisher_Publish(t *testing.T) {
	broker := &fakeBroker{}
	p := NewRabbitPublisher(broker)

	event := New(TypeJobCreated, map[string]any{"jobId": "j1", "title": "Logo"})
	require.NoError(t, p.Publish(context.Background(), event))

	assert.Equal(t, "job.created", broker.routingKey)
	assert.Equal(t, "application/json", broker.contentType)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(broker.body, &decoded))
	assert.Equal(t, event.ID, decoded["id"])
	assert.Equal(t, "job.created", decoded["type"])
	assert.Contains(t, decoded, "occurred_at")
	assert.Equal(t, map[string]any{"jobId": "j1", "title": "Logo"}, decoded["data"])
}

func TestRabbitPublisher_Errors(t *testing.T) {
	t.Run("broker failure", func(t *testing.T) {
		brokerErr := errors.New("channel closed")
		p := NewRabbitPublisher(&fakeBroker{err: brokerErr})
		err := p.Publish(context.Background(), New(TypeJobDeleted, nil))
		assert.ErrorIs(t, err, brokerErr)
	})

	t.Run("unencodable data", func(t *testing.T) {
		broker := &fakeBroker{}
		p := NewRabbitPublisher(broker)
		err := p.Publish(context.Background(), New(TypeJobUpdated, map[string]any{"f": func() {}}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to encode event job.updated")
		assert.Nil(t, broker.body)
	})
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), New(TypeTaskRemoved, nil)))
}
