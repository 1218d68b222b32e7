// internal/app/adapters.go
package app

import (
	"buy-assistant/internal/common/logger"
	buildcarousels "buy-assistant/internal/workers/assistant/build-carousels"
	fetchlistings "buy-assistant/internal/workers/assistant/fetch-listings"
	matchcategory "buy-assistant/internal/workers/assistant/match-category"
	planintent "buy-assistant/internal/workers/assistant/plan-intent"
)

// Each package declares its own Logger whose With returns that package's
// type, so logger.Logger needs a thin wrapper per package.

type planIntentLoggerAdapter struct {
	logger.Logger
}

func (a *planIntentLoggerAdapter) With(fields map[string]interface{}) planintent.Logger {
	return &planIntentLoggerAdapter{a.Logger.With(fields)}
}

type matchCategoryLoggerAdapter struct {
	logger.Logger
}

func (a *matchCategoryLoggerAdapter) With(fields map[string]interface{}) matchcategory.Logger {
	return &matchCategoryLoggerAdapter{a.Logger.With(fields)}
}

type fetchListingsLoggerAdapter struct {
	logger.Logger
}

func (a *fetchListingsLoggerAdapter) With(fields map[string]interface{}) fetchlistings.Logger {
	return &fetchListingsLoggerAdapter{a.Logger.With(fields)}
}

type buildCarouselsLoggerAdapter struct {
	logger.Logger
}

func (a *buildCarouselsLoggerAdapter) With(fields map[string]interface{}) buildcarousels.Logger {
	return &buildCarouselsLoggerAdapter{a.Logger.With(fields)}
}
