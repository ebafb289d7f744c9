package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext_Default(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))
	var none context.Context
	assert.Same(t, slog.Default(), FromContext(none))
}

func TestWith_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	ctx = With(ctx, "unit", "u1")

	FromContext(ctx).Info("Hello.")
	assert.Contains(t, buf.String(), "msg=Hello. unit=u1")
}
