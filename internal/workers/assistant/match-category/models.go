// internal/workers/assistant/match-category/models.go
package matchcategory

import "strings"

type Input struct {
	CategoryName string `json:"categoryName"`
}

// taxonomyEntry is the _source of one taxonomy index document.
type taxonomyEntry struct {
	CategoryID   string `json:"category_id_l3"`
	CategoryName string `json:"category_name_l3"`
	DomainID     string `json:"domain_id"`
	Descriptor   string `json:"descriptor"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string        `json:"_id"`
			Score  float64       `json:"_score"`
			Source taxonomyEntry `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

const (
	descriptorCategoryID   = "CATEGORY_ID_L3: "
	descriptorCategoryName = "CATEGORY_NAME_L3: "
	descriptorDomainID     = "DOMAIN_ID: "
)

// fillFromDescriptor completes missing structured fields from the
// "KEY: value" lines of the descriptor text.
func (e *taxonomyEntry) fillFromDescriptor() {
	if e.Descriptor == "" {
		return
	}
	for _, line := range strings.Split(e.Descriptor, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case e.CategoryID == "" && strings.HasPrefix(line, descriptorCategoryID):
			e.CategoryID = strings.TrimPrefix(line, descriptorCategoryID)
		case e.CategoryName == "" && strings.HasPrefix(line, descriptorCategoryName):
			e.CategoryName = strings.TrimPrefix(line, descriptorCategoryName)
		case e.DomainID == "" && strings.HasPrefix(line, descriptorDomainID):
			e.DomainID = strings.TrimPrefix(line, descriptorDomainID)
		}
	}
}
