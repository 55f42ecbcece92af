package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/quizwatch/quizwatch/internal/event"
)

// strategy derives one field from a card; an empty result means "try the next one"
type strategy func(*goquery.Selection) string

// firstOf applies strategies in order and returns the first non-empty result
func firstOf(block *goquery.Selection, strategies ...strategy) string {
	for _, s := range strategies {
		if v := s(block); v != "" {
			return v
		}
	}
	return ""
}

var (
	// a day number followed by a Russian month stem
	monthTokenPattern = regexp.MustCompile(`(?i)\d{1,2}\s+(янв|фев|мар|апр|ма[йя]|июн|июл|авг|сен|окт|ноя|дек)`)
	dayMonthWeekday   = regexp.MustCompile(`(?i)\d{1,2}\s+(?:янв|фев|мар|апр|ма[йя]|июн|июл|авг|сен|окт|ноя|дек)[а-яё]*\.?(?:,?\s+(?:понедельник|вторник|сред[аы]|четверг|пятниц[аы]|суббот[аы]|воскресень[ея]|пн|вт|ср|чт|пт|сб|вс))?`)

	clockPattern     = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	atClockPattern   = regexp.MustCompile(`(?i)(?:^|\s)(?:в|at)\s+(\d{1,2}:\d{2})`)
	leadingClock     = regexp.MustCompile(`^\d{1,2}:`)
	currencyPattern  = regexp.MustCompile(`(?i)[₽$€]|\d\s*руб`)
	pricePhrase      = regexp.MustCompile(`(?i)\d[\d ]*\s*(?:₽|руб\.?)(?:\s*(?:/|с|за)\s*(?:человека|чел\.?|person))?`)
	slashSpacing     = regexp.MustCompile(`\s*/\s*`)
	sequencePattern  = regexp.MustCompile(`#\s*(\d+)`)
	digitsPattern    = regexp.MustCompile(`\d+`)
	addressMarkers   = regexp.MustCompile(`(?i)(?:^|[\s,])(?:ул\.|улица|пр-т|проспект|пер\.|переулок|пл\.|площадь|наб\.|набережная|бульвар|б-р|шоссе|г\.|д\.\s*\d|street|st\.|ave\.?|road)`)
	whereIsItPattern = regexp.MustCompile(`(?i)где это\??`)
)

var statusWords = []string{
	"нет мест", "мало мест", "есть места", "резерв",
	"no seats", "few seats", "seats available", "reserve",
}

// Length ceilings for place and address candidates, in runes.
const (
	maxAddressLen = 120
	maxPlaceLen   = 200
)

// ExtractDate returns the game date as printed, e.g. "15 июня, воскресенье".
func ExtractDate(block *goquery.Selection) string {
	return firstOf(block, dateByClass, dateByPattern)
}

func dateByClass(block *goquery.Selection) string {
	var found string
	block.Find(".block-date-with-language-game, [class*=date]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := collapse(s.Text()); monthTokenPattern.MatchString(text) {
			found = text
			return false
		}
		return true
	})
	return found
}

func dateByPattern(block *goquery.Selection) string {
	return collapse(dayMonthWeekday.FindString(fullText(block)))
}

// ExtractTime returns the start time as HH:MM
func ExtractTime(block *goquery.Selection) string {
	return firstOf(block, timeByClass, timeByPhrase, timeByInfoLine)
}

func timeByClass(block *goquery.Selection) string {
	var found string
	block.Find("[class*=time], .techtext").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = clock(s.Text())
		return found == ""
	})
	return found
}

func timeByPhrase(block *goquery.Selection) string {
	m := atClockPattern.FindStringSubmatch(fullText(block))
	if m == nil {
		return ""
	}
	return clock(m[1])
}

func timeByInfoLine(block *goquery.Selection) string {
	for _, line := range linesOf(block.Find(".schedule-info")) {
		if leadingClock.MatchString(line) {
			if c := clock(line); c != "" {
				return c
			}
		}
	}
	return ""
}

// clock finds the first HH:MM in s and zero-pads the hour
func clock(s string) string {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	h := m[1]
	if len(h) == 1 {
		h = "0" + h
	}
	return h + ":" + m[2]
}

// ExtractPlaceAddress scans the info rows for the venue name and street
// address. Either value falls back to event.PlaceNotSpecified.
func ExtractPlaceAddress(block *goquery.Selection) (place, address string) {
	for _, text := range placeCandidates(block) {
		if place != "" && address != "" {
			break
		}
		if clockPattern.MatchString(text) || currencyPattern.MatchString(text) || monthTokenPattern.MatchString(text) {
			continue
		}
		n := len([]rune(text))
		switch {
		case addressMarkers.MatchString(text) && n < maxAddressLen:
			if address == "" {
				address = text
			}
		case n < maxPlaceLen:
			if place == "" {
				place = text
			}
		}
	}

	if place == "" {
		place = event.PlaceNotSpecified
	}
	if address == "" {
		address = event.PlaceNotSpecified
	}
	return place, address
}

// placeCandidates lists the lines of every direct child of every info row
func placeCandidates(block *goquery.Selection) []string {
	var out []string
	block.Find(".schedule-info").Each(func(_ int, info *goquery.Selection) {
		parts := info.Children()
		if parts.Length() == 0 {
			parts = info
		}
		parts.Each(func(_ int, part *goquery.Selection) {
			for _, line := range linesOf(part) {
				if line = collapse(whereIsItPattern.ReplaceAllString(line, "")); line != "" {
					out = append(out, line)
				}
			}
		})
	})
	return out
}

// ExtractPrice returns the ticket price with normalized spacing, e.g. "500 ₽ / чел".
func ExtractPrice(block *goquery.Selection) string {
	return normalizePrice(firstOf(block, priceByClass, priceByCurrencyLeaf, priceByPattern))
}

func priceByClass(block *goquery.Selection) string {
	if p := textOf(block.Find(".price")); p != "" {
		return p
	}
	return textOf(block.Find("[class*=price]"))
}

func priceByCurrencyLeaf(block *goquery.Selection) string {
	var found string
	block.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true
		}
		if text := collapse(s.Text()); strings.Contains(text, "₽") {
			found = text
			return false
		}
		return true
	})
	return found
}

func priceByPattern(block *goquery.Selection) string {
	return pricePhrase.FindString(fullText(block))
}

func normalizePrice(s string) string {
	return collapse(slashSpacing.ReplaceAllString(collapse(s), " / "))
}

// ExtractStatus returns the seat availability text shown on the card
func ExtractStatus(block *goquery.Selection) string {
	return firstOf(block, statusByClass, statusByKeyword)
}

func statusByClass(block *goquery.Selection) string {
	return textOf(block.Find(".game-status, [class*=status], [class*=seats], [class*=booking]"))
}

func statusByKeyword(block *goquery.Selection) string {
	for _, line := range linesOf(block) {
		lower := strings.ToLower(line)
		for _, w := range statusWords {
			if strings.Contains(lower, w) {
				return line
			}
		}
	}
	return ""
}

const buttonSelector = "a.button, button, [class*=btn]"

// ExtractButtonLabel returns the text of the first button on the card
func ExtractButtonLabel(block *goquery.Selection) string {
	return textOf(block.Find(buttonSelector))
}

// ExtractSequenceNumber returns the game number as "#<digits>", or empty.
func ExtractSequenceNumber(block *goquery.Selection) string {
	return firstOf(block, sequenceByClass, sequenceByPattern)
}

func sequenceByClass(block *goquery.Selection) string {
	text := textOf(block.Find(".game-number, [class*=game-number]"))
	if m := digitsPattern.FindString(text); m != "" {
		return "#" + m
	}
	return ""
}

func sequenceByPattern(block *goquery.Selection) string {
	if m := sequencePattern.FindStringSubmatch(fullText(block)); m != nil {
		return "#" + m[1]
	}
	return ""
}

// ExtractRegistrationURL returns the absolute link of the first button-like
// anchor with a real href, resolved against origin. It returns
// event.NoRegistrationURL when there is none.
func ExtractRegistrationURL(block *goquery.Selection, origin string) string {
	var href string
	block.Find("a.button, a[class*=btn]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		h, ok := s.Attr("href")
		h = strings.TrimSpace(h)
		if !ok || isPlaceholderHref(h) {
			return true
		}
		href = h
		return false
	})
	if href == "" {
		return event.NoRegistrationURL
	}

	ref, err := url.Parse(href)
	if err != nil {
		return event.NoRegistrationURL
	}
	if ref.IsAbs() {
		return ref.String()
	}
	base, err := url.Parse(origin)
	if err != nil || !base.IsAbs() {
		return event.NoRegistrationURL
	}
	return base.ResolveReference(ref).String()
}

func isPlaceholderHref(h string) bool {
	return h == "" || h == "#" || strings.HasPrefix(strings.ToLower(h), "javascript:")
}
