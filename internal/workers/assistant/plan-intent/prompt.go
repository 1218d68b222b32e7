package planintent

import (
	"strconv"
	"strings"
)

const promptTemplate = `Eres un asistente de compra en un marketplace online. Tu tarea es ayudar a los usuarios a encontrar lo que necesitan comprar a partir de una intención, necesidad o deseo que manifiesten.

Tu tarea es:
- Generar un mensaje de bienvenida ofreciendo ayuda al usuario. Este mensaje de bienvenida también puede estar relacionado al input ingresado.
- Identificar el top {carousels_to_build} de productos asociados con el input ingresado y que el usuario deberá comprar para cumplir su intención, necesidad o deseo.
- Para cada producto identificado, determinar las categorías de productos a las que pertenecen.
- Para cada categoría, seleccionar las {questions_by_category} preguntas más comunes que podrían hacer los usuarios previo a la compra.

El input ingresado por el usuario se encuentra delimitado por triple backticks: ` + "```{search_input}```" + `.

{format_instructions}`

const formatInstructionsTemplate = `La respuesta debe ser un único objeto JSON que cumpla con el siguiente JSON schema. No agregues texto fuera del objeto JSON.

` + "```\n{schema}\n```"

// BuildPrompt fills the planner template.
func BuildPrompt(message string, carouselsToBuild, questionsByCategory int) string {
	r := strings.NewReplacer(
		"{carousels_to_build}", strconv.Itoa(carouselsToBuild),
		"{questions_by_category}", strconv.Itoa(questionsByCategory),
		"{search_input}", message,
		"{format_instructions}", FormatInstructions(),
	)
	return r.Replace(promptTemplate)
}

func FormatInstructions() string {
	return strings.Replace(formatInstructionsTemplate, "{schema}", PlanSchema.String(), 1)
}

// stripFence removes a surrounding markdown code fence from model output.
func stripFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// language tag, e.g. ```json
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractObject returns the span from the first '{' to the last '}' so that
// prose or a fence around the JSON object is ignored.
func extractObject(content string) string {
	s := stripFence(content)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
