package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, LogFields(ctx))

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithJobRun(ctx, "dashboard_warm", "run-9")

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "dashboard_warm:run-9", JobRun(ctx))
	assert.Len(t, LogFields(ctx), 2)
}
