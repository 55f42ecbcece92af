package scraper

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const (
	testTitle  = "Квиз, плиз! KLG"
	testOrigin = "https://klg.quizplease.ru"
)

func testOptions() Options {
	return Options{
		Title:    testTitle,
		Keywords: []string{"классическ", "classic"},
		Origin:   testOrigin,
	}
}

// gameCard describes one schedule card the way the live page renders it
type gameCard struct {
	Title   string
	Seq     string
	Date    string
	Clock   string
	Place   string
	Address string
	Price   string
	Status  string
	Button  string
	Href    string
}

func (c gameCard) HTML() string {
	var b strings.Builder
	b.WriteString(`<div class="schedule-column"><div class="schedule-block">`)
	fmt.Fprintf(&b, `<div class="h2-game-card">%s</div>`, c.Title)
	if c.Seq != "" {
		fmt.Fprintf(&b, `<div class="game-number">%s</div>`, c.Seq)
	}
	if c.Date != "" {
		fmt.Fprintf(&b, `<div class="block-date-with-language-game">%s</div>`, c.Date)
	}
	if c.Clock != "" {
		fmt.Fprintf(&b, `<div class="schedule-info"><img src="/img/time-halfwhite.svg"><div class="techtext">%s</div></div>`, c.Clock)
	}
	if c.Place != "" || c.Address != "" {
		fmt.Fprintf(&b, `<div class="schedule-info"><img src="/img/pin-halfwhite.svg">`+
			`<div class="schedule-block-info-bar">%s</div>`+
			`<div class="techtext-halfwhite">%s <a href="#" class="map-link-text">Где это?</a></div></div>`, c.Place, c.Address)
	}
	if c.Price != "" {
		fmt.Fprintf(&b, `<div class="schedule-info new-price"><span class="price">%s</span></div>`, c.Price)
	}
	if c.Status != "" {
		fmt.Fprintf(&b, `<div class="game-status">%s</div>`, c.Status)
	}
	if c.Button != "" {
		fmt.Fprintf(&b, `<a class="button button-green" href="%s">%s</a>`, c.Href, c.Button)
	}
	b.WriteString(`</div></div>`)
	return b.String()
}

func classicCard() gameCard {
	return gameCard{
		Title:   testTitle,
		Seq:     "#502",
		Date:    "15 июня, воскресенье",
		Clock:   "19:30",
		Place:   "Бар «Янтарь»",
		Address: "ул. Ленина, 5",
		Price:   "500 ₽/чел",
		Status:  "Есть места",
		Button:  "Записаться",
		Href:    "/game-page?id=502",
	}
}

func page(cards ...gameCard) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><title>Расписание</title></head><body><div class="schedule">`)
	for _, c := range cards {
		b.WriteString(c.HTML())
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

// blockFrom wraps inner markup in a schedule card and returns it
func blockFrom(t *testing.T, inner string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><div class="schedule-column">` + inner + `</div></body></html>`))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return doc.Find(BlockSelector).First()
}

func cardBlock(t *testing.T, c gameCard) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page(c)))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return doc.Find(BlockSelector).First()
}
