package domain

import (
	"encoding/json"
	"fmt"
)

// NewsVariant is the display accent of a news card.
type NewsVariant string

const (
	NewsPink  NewsVariant = "pink"
	NewsBlue  NewsVariant = "blue"
	NewsGreen NewsVariant = "green"
)

func (v *NewsVariant) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch NewsVariant(raw) {
	case NewsPink, NewsBlue, NewsGreen:
		*v = NewsVariant(raw)
		return nil
	default:
		return fmt.Errorf("unknown news variant %q", raw)
	}
}

// NewsItem is one entry of GET /news.
type NewsItem struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Intro   string           `json:"intro"`
	Tags    []string         `json:"tags"`
	Variant Opt[NewsVariant] `json:"variant"`
}
