package model

import (
	"errors"
	"fmt"
)

// RatingCategories is the fixed vocabulary of feedback tags
var RatingCategories = []string{
	"response_time",
	"product_quality",
	"communication",
	"friendliness",
}

// ErrInvalidRating indicates a rating that must not reach the backend
var ErrInvalidRating = errors.New("invalid rating")

// Rating is the optional feedback submitted after a completed handover
type Rating struct {
	TransactionID string   `json:"transactionId"`
	SellerID      string   `json:"sellerId"`
	Rating        int      `json:"rating"`
	Comment       string   `json:"comment,omitempty"`
	Categories    []string `json:"categories"`
}

// Validate rejects ratings client-side before any network call. An unset
// rating (0) is not submittable.
func (r *Rating) Validate() error {
	if r.TransactionID == "" {
		return fmt.Errorf("%w: missing transaction id", ErrInvalidRating)
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("%w: rating must be 1-5, got %d", ErrInvalidRating, r.Rating)
	}
	for _, category := range r.Categories {
		if !validCategory(category) {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidRating, category)
		}
	}
	return nil
}

func validCategory(category string) bool {
	for _, known := range RatingCategories {
		if category == known {
			return true
		}
	}
	return false
}
