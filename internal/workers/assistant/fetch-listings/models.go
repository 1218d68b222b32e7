// internal/workers/assistant/fetch-listings/models.go
package fetchlistings

import "buy-assistant/internal/models"

type Input struct {
	CategoryID string `json:"categoryId"`
}

type searchResponse struct {
	// pointer so that a body without "results" is told apart from an empty page
	Results *[]rawListing `json:"results"`
}

type rawListing struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Permalink  string `json:"permalink"`
	Thumbnail  string `json:"thumbnail"`
	CategoryID string `json:"category_id"`
	DomainID   string `json:"domain_id"`
}

func (r rawListing) toListing() models.Listing {
	return models.Listing{
		ItemID:     r.ID,
		Title:      r.Title,
		Permalink:  r.Permalink,
		Thumbnail:  r.Thumbnail,
		CategoryID: r.CategoryID,
		DomainID:   r.DomainID,
	}
}
