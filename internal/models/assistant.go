// internal/models/assistant.go
package models

// Plan is the structured output of the intent planner.
type Plan struct {
	Message    string             `json:"message"`
	Categories []CategoryProposal `json:"categories"`
}

type CategoryProposal struct {
	Name      string   `json:"name"`
	Questions []string `json:"questions"`
}

// FindProposal returns the proposal whose name equals name exactly.
func (p *Plan) FindProposal(name string) (*CategoryProposal, bool) {
	for i := range p.Categories {
		if p.Categories[i].Name == name {
			return &p.Categories[i], true
		}
	}
	return nil, false
}

// ResolvedCategory is a proposal matched against the taxonomy index.
type ResolvedCategory struct {
	CategoryRaw     string  `json:"category_raw"`
	CategoryID      string  `json:"category_id"`
	CategoryName    string  `json:"category_name"`
	DomainID        string  `json:"domain_id"`
	SimilarityScore float64 `json:"similarity_score"`
}

// ListingBatch holds one page of listings for a distinct category id.
type ListingBatch struct {
	CategoryID string    `json:"category_id"`
	Listings   []Listing `json:"listings"`
}

type Listing struct {
	ItemID     string `json:"item_id"`
	Title      string `json:"title"`
	Permalink  string `json:"permalink"`
	Thumbnail  string `json:"thumbnail"`
	CategoryID string `json:"category_id"`
	DomainID   string `json:"domain_id"`
}

type Carousel struct {
	CategoryRaw     string    `json:"category_raw"`
	CategoryID      string    `json:"category_id"`
	CategoryName    string    `json:"category_name"`
	DomainID        string    `json:"domain_id"`
	SimilarityScore float64   `json:"similarity_score"`
	Items           []Listing `json:"items"`
	Questions       []string  `json:"questions"`
}

type Response struct {
	Message   string     `json:"message"`
	Carousels []Carousel `json:"carousels"`
}
