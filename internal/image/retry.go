package image

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/readiness"
)

// Signatures of the stream failures the image builder recovers from.
var transientSignatures = []string{"ImageJoinStreaming", "RST_STREAM", "INTERNAL"}

// IsTransient returns true if the build error is a transient stream failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range transientSignatures {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// RetryBuilderConfig is the configuration of RetryBuilder.
type RetryBuilderConfig struct {
	Builder     Builder
	MaxAttempts int
	// BaseDelay is multiplied by the failed attempt number to get the wait before the next one.
	BaseDelay time.Duration
	Sleep     readiness.SleepFunc
	Logger    log.Logger
}

func (c *RetryBuilderConfig) defaults() error {
	if c.Builder == nil {
		return fmt.Errorf("builder is required")
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 4 * time.Second
	}
	if c.Sleep == nil {
		c.Sleep = readiness.Sleep
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "image.RetryBuilder"})
	return nil
}

// RetryBuilder builds images retrying transient failures with a linear backoff.
type RetryBuilder struct {
	builder     Builder
	maxAttempts int
	baseDelay   time.Duration
	sleep       readiness.SleepFunc
	logger      log.Logger
}

// NewRetryBuilder returns a new RetryBuilder.
func NewRetryBuilder(cfg RetryBuilderConfig) (*RetryBuilder, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &RetryBuilder{
		builder:     cfg.Builder,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		sleep:       cfg.Sleep,
		logger:      cfg.Logger,
	}, nil
}

// BuildImage builds the image. Non transient errors and the error of the last attempt are returned as is.
func (r *RetryBuilder) BuildImage(ctx context.Context, spec model.ImageSpec) (*model.Image, error) {
	for attempt := 1; ; attempt++ {
		img, err := r.builder.BuildImage(ctx, spec)
		if err == nil {
			return img, nil
		}

		if !IsTransient(err) || attempt >= r.maxAttempts {
			return nil, err
		}

		delay := time.Duration(attempt) * r.baseDelay
		r.logger.Warningf("Image build stream error (attempt %d/%d). Retrying in %s...", attempt, r.maxAttempts, delay)
		if err := r.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("image build retry interrupted: %w", err)
		}
	}
}
