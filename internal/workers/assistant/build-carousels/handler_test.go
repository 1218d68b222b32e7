// internal/workers/assistant/build-carousels/handler_test.go
package buildcarousels

import (
	"context"
	"testing"

	apperrors "buy-assistant/internal/common/errors"
	"buy-assistant/internal/common/logger"
	"buy-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	requestID string
	message   string
	resp      *models.Response
	err       error
}

func (s *stubRunner) Run(ctx context.Context, message string) (*models.Response, error) {
	s.requestID = logger.RequestIDFromContext(ctx)
	s.message = message
	return s.resp, s.err
}

func TestExecute_Success(t *testing.T) {
	runner := &stubRunner{resp: &models.Response{
		Message:   "hola",
		Carousels: []models.Carousel{{CategoryRaw: "Licuadoras", CategoryID: "MLA1"}},
	}}
	h := NewHandler(createTestConfig(), runner, nil, newTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Message: "quiero una licuadora"})
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, "hola", out.Response.Message)
	assert.Len(t, out.Response.Carousels, 1)
	assert.Equal(t, "quiero una licuadora", runner.message)
	assert.NotEmpty(t, runner.requestID)
}

func TestExecute_EmptyMessage(t *testing.T) {
	runner := &stubRunner{}
	h := NewHandler(createTestConfig(), runner, nil, newTestLogger(t))

	for _, msg := range []string{"", "   \n\t"} {
		out, err := h.Execute(context.Background(), &Input{Message: msg})
		assert.Nil(t, out)
		require.Error(t, err)

		stdErr, ok := apperrors.AsStandardError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeInvalidRequest, stdErr.Code)
	}
	assert.Empty(t, runner.message)
}

func TestExecute_PropagatesPipelineError(t *testing.T) {
	runner := &stubRunner{err: apperrors.NewPlannerFailureError(assert.AnError)}
	h := NewHandler(createTestConfig(), runner, nil, newTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{Message: "cocina"})
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodePlannerFailure, stdErr.Code)
	assert.Equal(t, 3, apperrors.ConvertToBPMNError(stdErr).Retries)
}

func TestExecute_DistinctRequestIDs(t *testing.T) {
	runner := &stubRunner{resp: &models.Response{Carousels: []models.Carousel{}}}
	h := NewHandler(createTestConfig(), runner, nil, newTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{Message: "a"})
	require.NoError(t, err)
	first := runner.requestID

	_, err = h.Execute(context.Background(), &Input{Message: "b"})
	require.NoError(t, err)
	assert.NotEqual(t, first, runner.requestID)
}
