package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentTrader/internal/domain/models"
	"AgentTrader/pkg/logger"
)

func TestAlerterThresholdAndToggle(t *testing.T) {
	pub := &capturePublisher{}
	cfg := NewAlertConfig(false, 0)
	a := NewAlerter(cfg, pub, nil, logger.Nop())
	ctx := context.Background()

	sent, err := a.Consider(ctx, sig(models.TF5m, 300, 0.9))
	require.NoError(t, err)
	assert.False(t, sent, "disabled alerts never fire")

	cfg.SetEnabled(true)
	assert.Equal(t, DefaultMinConfidence, cfg.MinConfidence())

	sent, _ = a.Consider(ctx, sig(models.TF5m, 300, 0.59))
	assert.False(t, sent)
	sent, _ = a.Consider(ctx, sig(models.TF5m, 300, 0.6))
	assert.True(t, sent, "threshold is inclusive")
}

func TestAlerterRetriesAfterPublishFailure(t *testing.T) {
	pub := &capturePublisher{fail: true}
	a := NewAlerter(NewAlertConfig(true, 0.5), pub, nil, logger.Nop())
	ctx := context.Background()

	_, err := a.Consider(ctx, sig(models.TF1h, 3600, 0.8))
	require.Error(t, err)

	pub.fail = false
	sent, err := a.Consider(ctx, sig(models.TF1h, 3600, 0.8))
	require.NoError(t, err)
	assert.True(t, sent)
}
