package buildcarousels

import (
	"errors"
	"fmt"

	"buy-assistant/internal/models"
)

var ErrInternalConsistency = errors.New("INTERNAL_CONSISTENCY_FAULT")

// Assemble joins resolved categories, their listing batches and the plan's
// questions into carousels, one per resolved entry and in the same order.
//
// Every resolved entry must have a batch for its category id and a proposal
// whose name equals its category_raw; a miss is reported as
// ErrInternalConsistency.
func Assemble(
	resolved []models.ResolvedCategory,
	batches []models.ListingBatch,
	plan *models.Plan,
	itemsByCarousel int,
) ([]models.Carousel, error) {
	carousels, err := BuildCarousels(resolved, batches, itemsByCarousel)
	if err != nil {
		return nil, err
	}
	if err := JoinQuestions(carousels, plan); err != nil {
		return nil, err
	}
	return carousels, nil
}

// BuildCarousels pairs each resolved category with the domain-filtered head
// of its listing batch.
func BuildCarousels(resolved []models.ResolvedCategory, batches []models.ListingBatch, itemsByCarousel int) ([]models.Carousel, error) {
	byCategory := make(map[string]*models.ListingBatch, len(batches))
	for i := range batches {
		byCategory[batches[i].CategoryID] = &batches[i]
	}

	carousels := make([]models.Carousel, 0, len(resolved))
	for _, rc := range resolved {
		batch, ok := byCategory[rc.CategoryID]
		if !ok {
			return nil, fmt.Errorf("%w: no listing batch for category %s", ErrInternalConsistency, rc.CategoryID)
		}

		carousels = append(carousels, models.Carousel{
			CategoryRaw:     rc.CategoryRaw,
			CategoryID:      rc.CategoryID,
			CategoryName:    rc.CategoryName,
			DomainID:        rc.DomainID,
			SimilarityScore: rc.SimilarityScore,
			Items:           filterByDomain(batch.Listings, rc.DomainID, itemsByCarousel),
		})
	}

	return carousels, nil
}

// JoinQuestions copies the questions of the proposal named category_raw into
// each carousel.
func JoinQuestions(carousels []models.Carousel, plan *models.Plan) error {
	for i := range carousels {
		proposal, ok := plan.FindProposal(carousels[i].CategoryRaw)
		if !ok {
			return fmt.Errorf("%w: no plan proposal named %q", ErrInternalConsistency, carousels[i].CategoryRaw)
		}
		carousels[i].Questions = append([]string{}, proposal.Questions...)
	}
	return nil
}

// filterByDomain keeps listings of domainID in their original order, up to limit.
func filterByDomain(listings []models.Listing, domainID string, limit int) []models.Listing {
	if limit < 0 {
		limit = 0
	}
	items := make([]models.Listing, 0, limit)
	for _, l := range listings {
		if len(items) >= limit {
			break
		}
		if l.DomainID == domainID {
			items = append(items, l)
		}
	}
	return items
}
