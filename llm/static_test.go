package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider_Completion(t *testing.T) {
	t.Run("fixed reply", func(t *testing.T) {
		p := &StaticProvider{Reply: "收到"}
		resp, err := p.Completion(context.Background(), &ChatRequest{Model: "claude-3-sonnet"})
		require.NoError(t, err)
		require.Len(t, resp.Choices, 1)
		assert.Equal(t, "收到", resp.Choices[0].Message.Content)
		assert.Equal(t, "static", resp.Provider)
		assert.Equal(t, "claude-3-sonnet", resp.Model)
	})

	t.Run("scripted error", func(t *testing.T) {
		cause := errors.New("boom")
		p := &StaticProvider{Err: cause}
		_, err := p.Completion(context.Background(), &ChatRequest{})
		assert.ErrorIs(t, err, cause)
	})

	t.Run("delay honours cancellation", func(t *testing.T) {
		p := &StaticProvider{Reply: "迟到", Delay: time.Hour}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		defer cancel()

		_, err := p.Completion(ctx, &ChatRequest{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestStaticProvider_HealthCheck(t *testing.T) {
	healthy, err := (&StaticProvider{}).HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, healthy.Healthy)

	unhealthy, err := (&StaticProvider{Err: errors.New("down")}).HealthCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, unhealthy.Healthy)
}
