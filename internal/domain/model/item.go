package model

import (
	"fmt"
	"strings"
)

// NoGenres is the catalogue placeholder for items without genres.
const NoGenres = "(no genres listed)"

// Item carries the display metadata of a movie.
type Item struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	Year     int      `json:"year,omitempty"`
	Genres   []string `json:"genres"`
	Tags     []string `json:"tags,omitempty"`
	IMDbID   string   `json:"imdb_id,omitempty"`
	IMDbLink string   `json:"imdb_link,omitempty"`
}

// IMDbLink returns the title page for a numeric IMDb id, or "" if id is empty.
func IMDbLink(imdbID string) string {
	if imdbID == "" {
		return ""
	}
	return "https://www.imdb.com/title/tt" + imdbID + "/"
}

// ViewItem is an item decorated for display with its recommendation score.
type ViewItem struct {
	Item
	Score        float64 `json:"score"`
	DisplayScore string  `json:"display_score"`
}

// NewViewItem decorates item with score formatted to two decimals.
func NewViewItem(item Item, score float64) ViewItem {
	return ViewItem{Item: item, Score: score, DisplayScore: fmt.Sprintf("%.2f", score)}
}

// GenreKey is the facet key for a genre label: lowercase with dashes removed.
func GenreKey(genre string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(genre)), "-", "")
}

// HasGenres reports whether every facet key in keys is present on the item.
func (i Item) HasGenres(keys []string) bool {
	if len(keys) == 0 {
		return true
	}
	own := make(map[string]struct{}, len(i.Genres))
	for _, g := range i.Genres {
		own[GenreKey(g)] = struct{}{}
	}
	for _, k := range keys {
		if _, ok := own[k]; !ok {
			return false
		}
	}
	return true
}

// Genre is a facet of the catalogue.
type Genre struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}
