// internal/workers/assistant/build-carousels/models.go
package buildcarousels

import "buy-assistant/internal/models"

type Input struct {
	Message string `json:"message"`
}

type Output struct {
	Response models.Response `json:"response"`
}
