// internal/workers/assistant/plan-intent/handler.go
package planintent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"buy-assistant/internal/models"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	TaskType = "plan-intent"
)

var (
	ErrPlannerFailure = errors.New("PLANNER_FAILURE")
	ErrPlannerTimeout = errors.New("PLANNER_TIMEOUT")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	client openai.Client
	logger Logger
}

func NewHandler(config *Config, log Logger, opts ...option.RequestOption) *Handler {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
	}
	if config.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(config.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &Handler{
		config: config,
		client: openai.NewClient(clientOpts...),
		logger: log.With(map[string]interface{}{
			"component": TaskType,
		}),
	}
}

// Plan asks the language model for categories and questions for message.
func (h *Handler) Plan(ctx context.Context, message string) (*models.Plan, error) {
	return h.Execute(ctx, &Input{Message: message})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*models.Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*models.Plan, error) {
	h.logger.Info("1. Building the prompt", nil)
	prompt := BuildPrompt(input.Message, h.config.CarouselsToBuild, h.config.QuestionsByCategory)

	h.logger.Info("2. Calling the chat and parsing the response", map[string]interface{}{
		"model": h.config.Model,
	})

	resp, err := h.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(h.config.Model),
		Temperature: openai.Float(h.config.Temperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrPlannerTimeout, err)
		}
		return nil, fmt.Errorf("%w: completion request: %v", ErrPlannerFailure, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrPlannerFailure)
	}

	plan, err := parsePlan(resp.Choices[0].Message.Content)
	if err != nil {
		h.logger.Warn("unparseable plan", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	h.logger.Info("plan received", map[string]interface{}{
		"categoryCount": len(plan.Categories),
	})

	return plan, nil
}

func parsePlan(content string) (*models.Plan, error) {
	raw := []byte(extractObject(content))

	if result := PlanSchema.ValidateBytes(raw); !result.Valid {
		return nil, fmt.Errorf("%w: plan does not match schema: %s", ErrPlannerFailure, result.Error())
	}

	var plan models.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("%w: decode plan: %v", ErrPlannerFailure, err)
	}

	return &plan, nil
}
