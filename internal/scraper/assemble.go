package scraper

import (
	"fmt"
	"io"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/quizwatch/quizwatch/internal/event"
	"github.com/quizwatch/quizwatch/internal/logger"
)

// BlockSelector matches one game card on the schedule page
const BlockSelector = "div.schedule-column"

// Field names used as keys in ParseResult.Misses
const (
	FieldDate            = "date"
	FieldTime            = "time"
	FieldPlace           = "place"
	FieldAddress         = "address"
	FieldPrice           = "price"
	FieldStatus          = "status"
	FieldButton          = "button"
	FieldSequenceNumber  = "sequence_number"
	FieldRegistrationURL = "registration_url"
)

// Options configures which cards are tracked and how links are resolved
type Options struct {
	// Title is the canonical series title, stored on every event.
	Title string
	// Keywords identify the series' game format in card text (case-insensitive).
	Keywords []string
	// Origin resolves relative registration links, e.g. "https://klg.quizplease.ru".
	Origin string
}

// ParseResult is the outcome of parsing one schedule page
type ParseResult struct {
	Events     []*event.Event
	ObservedAt time.Time
	Blocks     int // cards found on the page
	Skipped    int // cards not tracked, without a date, or failed
	Misses     map[string]int
}

// Parser turns schedule markup into events
type Parser struct {
	opts       Options
	classifier *Classifier
	now        func() time.Time
}

// NewParser creates a parser for the given series options
func NewParser(opts Options) *Parser {
	return &Parser{
		opts:       opts,
		classifier: NewClassifier(opts),
		now:        time.Now,
	}
}

// Parse extracts all tracked events from a schedule page. Every returned
// event carries the same ObservedAt.
func (p *Parser) Parse(r io.Reader) (*ParseResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	res := &ParseResult{
		Events:     make([]*event.Event, 0),
		ObservedAt: p.now().UTC(),
		Misses:     make(map[string]int),
	}

	doc.Find(BlockSelector).Each(func(i int, block *goquery.Selection) {
		res.Blocks++
		evt := p.assemble(block, res.ObservedAt, res.Misses)
		if evt == nil {
			res.Skipped++
			return
		}
		res.Events = append(res.Events, evt)
	})

	logger.Debug("Parsed schedule page", logger.Fields{
		"blocks":  res.Blocks,
		"events":  len(res.Events),
		"skipped": res.Skipped,
	})
	return res, nil
}

// Assemble builds an event from one card. It returns nil when the card is
// not a tracked game or has no recognizable date.
func (p *Parser) Assemble(block *goquery.Selection) *event.Event {
	return p.assemble(block, p.now().UTC(), nil)
}

func (p *Parser) assemble(block *goquery.Selection, observedAt time.Time, misses map[string]int) (evt *event.Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Skipping schedule card after panic", logger.Fields{
				"panic": fmt.Sprint(r),
			})
			evt = nil
		}
	}()

	if !p.classifier.IsTracked(block) {
		return nil
	}

	miss := func(field, value string) string {
		if value == "" || value == event.PlaceNotSpecified || value == event.NoRegistrationURL {
			logger.Debug("Field not found", logger.Fields{"field": field})
			if misses != nil {
				misses[field]++
			}
		}
		return value
	}
	field := func(name string, extract func() string) string {
		return miss(name, safeExtract(name, extract))
	}

	date := field(FieldDate, func() string { return ExtractDate(block) })
	if date == "" {
		return nil
	}

	var place, address string
	safeExtract(FieldPlace, func() string {
		place, address = ExtractPlaceAddress(block)
		return place
	})
	if place == "" {
		place = event.PlaceNotSpecified
	}
	if address == "" {
		address = event.PlaceNotSpecified
	}

	evt = &event.Event{
		Title:           p.opts.Title,
		SequenceNumber:  field(FieldSequenceNumber, func() string { return ExtractSequenceNumber(block) }),
		Date:            date,
		Time:            field(FieldTime, func() string { return ExtractTime(block) }),
		Place:           miss(FieldPlace, place),
		Address:         miss(FieldAddress, address),
		Price:           field(FieldPrice, func() string { return ExtractPrice(block) }),
		StatusText:      field(FieldStatus, func() string { return ExtractStatus(block) }),
		ButtonLabel:     field(FieldButton, func() string { return ExtractButtonLabel(block) }),
		RegistrationURL: field(FieldRegistrationURL, func() string { return ExtractRegistrationURL(block, p.opts.Origin) }),
		ObservedAt:      observedAt,
	}
	if evt.RegistrationURL == "" {
		evt.RegistrationURL = event.NoRegistrationURL
	}
	evt.Finalize()
	return evt
}

// safeExtract runs one field extractor; a panic yields an empty value
func safeExtract(field string, extract func() string) (value string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Field extractor panicked", logger.Fields{
				"field": field,
				"panic": fmt.Sprint(r),
			})
			value = ""
		}
	}()
	return extract()
}
