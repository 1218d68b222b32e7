package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservability_RecordAndShutdown(t *testing.T) {
	obs, err := New("buy-assistant-test")
	require.NoError(t, err)

	obs.RecordRequest(context.Background(), "http", "ok", 120*time.Millisecond)
	obs.RecordRequest(context.Background(), "job", "PLANNER_FAILURE", time.Second)

	assert.NoError(t, obs.Shutdown(context.Background()))
}

func TestObservability_NilIsNoOp(t *testing.T) {
	var obs *Observability
	obs.RecordRequest(context.Background(), "http", "ok", time.Millisecond)
	assert.NoError(t, obs.Shutdown(context.Background()))

	empty := &Observability{}
	empty.RecordRequest(context.Background(), "http", "ok", time.Millisecond)
	assert.NoError(t, empty.Shutdown(context.Background()))
}
