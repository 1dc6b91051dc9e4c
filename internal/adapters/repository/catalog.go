package repository

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/okian/cinematch/internal/domain/model"
)

// CatalogItem is one movie of a seed catalogue.
type CatalogItem struct {
	ID         int64     `json:"id" validate:"required,gt=0"`
	Title      string    `json:"title" validate:"required"`
	Year       int       `json:"year"`
	Genres     []string  `json:"genres"`
	Tags       []string  `json:"tags"`
	IMDbID     string    `json:"imdb_id" validate:"omitempty,numeric"`
	DirectorID int64     `json:"director_id"`
	ActorIDs   []int64   `json:"actor_ids"`
	Embedding  []float64 `json:"embedding"`
}

// CatalogRating is one historical rating of a seed catalogue.
type CatalogRating struct {
	UserID int64   `json:"user_id" validate:"required,gt=0"`
	ItemID int64   `json:"item_id" validate:"required,gt=0"`
	Value  float64 `json:"rating"`
}

// Catalog is the JSON seed loaded into the memory store and index.
type Catalog struct {
	Items   []CatalogItem   `json:"items" validate:"dive"`
	Ratings []CatalogRating `json:"ratings" validate:"dive"`
}

// Item returns the display metadata of a catalogue entry.
func (c CatalogItem) Item() model.Item { //nolint:gocritic // value receiver keeps the seed immutable
	return model.Item{
		ID:       c.ID,
		Title:    c.Title,
		Year:     c.Year,
		Genres:   c.Genres,
		Tags:     c.Tags,
		IMDbID:   c.IMDbID,
		IMDbLink: model.IMDbLink(c.IMDbID),
	}
}

// LoadCatalog reads and validates a JSON catalogue from path.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes and validates a JSON catalogue.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	known := make(map[int64]struct{}, len(c.Items))
	for _, it := range c.Items {
		if _, dup := known[it.ID]; dup {
			return nil, fmt.Errorf("invalid catalog: duplicate item %d", it.ID)
		}
		known[it.ID] = struct{}{}
	}
	for _, r := range c.Ratings {
		if _, ok := known[r.ItemID]; !ok {
			return nil, fmt.Errorf("invalid catalog: rating of user %d: %w: %d", r.UserID, ErrItemNotFound, r.ItemID)
		}
	}
	return &c, nil
}
