// internal/workers/assistant/plan-intent/models.go
package planintent

import "buy-assistant/internal/common/validation"

type Input struct {
	Message string `json:"message"`
}

// planSchema is embedded into the prompt and checked against the model output.
const planSchema = `{
  "type": "object",
  "properties": {
    "message": {
      "type": "string",
      "description": "Mensaje de bienvenida"
    },
    "categories": {
      "type": "array",
      "description": "Categorías asociadas a los productos identificados",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string", "minLength": 1, "description": "Nombre de la categoría"},
          "questions": {
            "type": "array",
            "description": "Preguntas asociadas a la categoría",
            "items": {"type": "string"}
          }
        },
        "required": ["name", "questions"]
      }
    }
  },
  "required": ["message", "categories"]
}`

var PlanSchema = validation.MustCompile(planSchema)
