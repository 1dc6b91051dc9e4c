package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/cinematch/internal/domain/model"
)

type submission struct {
	UserID  int64          `validate:"gt=0"`
	Ratings []model.Rating `validate:"required,min=1,unique=ItemID,dive"`
}

// validateRatings rejects malformed payloads, out-of-scale values, small
// sets and references to items outside the catalogue.
func (s *Service) validateRatings(ctx context.Context, userID int64, ratings []model.Rating) error {
	if err := s.validate.Struct(submission{UserID: userID, Ratings: ratings}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+":"+fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalidRatings, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidRatings, err)
	}

	for _, r := range ratings {
		if !(r.Value >= s.ratingMin && r.Value <= s.ratingMax) { // also rejects NaN
			return fmt.Errorf("%w: item %d rated %.1f outside [%.1f, %.1f]",
				ErrInvalidRatings, r.ItemID, r.Value, s.ratingMin, s.ratingMax)
		}
	}

	if len(ratings) < s.minRatings {
		return fmt.Errorf("%w: got %d, need at least %d", ErrInsufficientRatings, len(ratings), s.minRatings)
	}

	unknown, err := s.store.UnknownItems(ctx, model.ItemIDs(ratings))
	if err != nil {
		return fmt.Errorf("check items: %w", err)
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %v", ErrUnknownItem, unknown)
	}
	return nil
}

// resolveFacets maps requested genre keys onto catalogue keys.
func (s *Service) resolveFacets(ctx context.Context, facets []string) ([]string, error) {
	if len(facets) == 0 {
		return nil, nil
	}
	genres, err := s.Genres(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		known[g.Key] = struct{}{}
	}

	keys := make([]string, 0, len(facets))
	for _, f := range facets {
		k := model.GenreKey(f)
		if k == "" {
			continue
		}
		if _, ok := known[k]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownGenre, f)
		}
		keys = append(keys, k)
	}
	return keys, nil
}
