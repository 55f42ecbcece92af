package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// titleSelector matches the card heading carrying the series name
const titleSelector = ".h2-game-card"

// Classifier decides whether a schedule card belongs to the tracked series
type Classifier struct {
	title    string
	keywords []string
}

// NewClassifier builds a classifier from the series title and format keywords.
func NewClassifier(opts Options) *Classifier {
	c := &Classifier{title: collapse(opts.Title)}
	for _, kw := range opts.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			c.keywords = append(c.keywords, kw)
		}
	}
	return c
}

// IsTracked reports whether block is a game of the tracked series: its title
// element equals the canonical title exactly, or its text mentions one of the
// format keywords. Missing elements count as no match.
func (c *Classifier) IsTracked(block *goquery.Selection) bool {
	if block == nil || block.Length() == 0 {
		return false
	}

	if c.title != "" {
		if title := textOf(block.Find(titleSelector)); title != "" && title == c.title {
			return true
		}
	}

	if len(c.keywords) == 0 {
		return false
	}
	text := strings.ToLower(fullText(block))
	for _, kw := range c.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
