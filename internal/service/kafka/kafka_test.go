package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestConsume_WithoutGroup(t *testing.T) {
	s := &Service{}

	_, err := s.Consume(context.Background())
	assert.ErrorIs(t, err, ErrNoConsumer)
}

func TestNew_RejectsInvalidTopicLayout(t *testing.T) {
	_, err := New([]string{"localhost:9092"}, "note-events", "", 0, 1, zap.NewNop())
	assert.Error(t, err)

	_, err = New([]string{"localhost:9092"}, "note-events", "", 1, 0, zap.NewNop())
	assert.Error(t, err)
}
