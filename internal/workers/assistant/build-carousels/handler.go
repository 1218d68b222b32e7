// internal/workers/assistant/build-carousels/handler.go
package buildcarousels

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	apperrors "buy-assistant/internal/common/errors"
	"buy-assistant/internal/common/logger"
	"buy-assistant/internal/common/metrics"
	"buy-assistant/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "build-carousels"
)

// Runner is satisfied by *Pipeline.
type Runner interface {
	Run(ctx context.Context, message string) (*models.Response, error)
}

type Recorder interface {
	RecordRequest(ctx context.Context, surface, status string, duration time.Duration)
}

// Handler serves the build-carousels job type.
type Handler struct {
	config       *Config
	runner       Runner
	errorHandler *apperrors.ErrorHandler
	recorder     Recorder
	logger       Logger
}

func NewHandler(config *Config, runner Runner, recorder Recorder, log Logger) *Handler {
	log = log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		runner:       runner,
		errorHandler: apperrors.NewErrorHandler(log),
		recorder:     recorder,
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, start, apperrors.NewInvalidRequestError("parse input: "+err.Error()))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, start, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.record(ctx, "ok", start)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, apperrors.NewInvalidRequestError("message is required")
	}

	ctx = logger.ContextWithRequestID(ctx, uuid.NewString())

	resp, err := h.runner.Run(ctx, input.Message)
	if err != nil {
		return nil, err
	}

	return &Output{Response: *resp}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, start time.Time, err error) {
	stdErr := apperrors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
	h.record(ctx, string(stdErr.Code), start)
}

func (h *Handler) record(ctx context.Context, status string, start time.Time) {
	if h.recorder != nil {
		h.recorder.RecordRequest(ctx, "job", status, time.Since(start))
	}
}
