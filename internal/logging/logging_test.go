package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContextOr(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	stored := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	assert.Same(t, fallback, FromContextOr(context.Background(), fallback))
	assert.Same(t, slog.Default(), FromContextOr(context.Background(), nil))
	assert.Same(t, stored, FromContextOr(ContextWithLogger(context.Background(), stored), fallback))
}

func TestWithEnrichesStoredLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	ctx = With(ctx, "principal_id", "owner@example.com")
	FromContext(ctx).Info("hello")

	assert.Contains(t, buf.String(), "principal_id=owner@example.com")
	assert.Equal(t, context.Background(), With(context.Background(), "k", "v"))
}

func TestContextWithNilLogger(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, ContextWithLogger(ctx, nil))
	assert.Nil(t, FromContext(ctx))
}
