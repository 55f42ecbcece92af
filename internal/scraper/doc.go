// Package scraper fetches the quiz schedule page and turns its game cards
// into event records.
//
// Every card (div.schedule-column) first goes through the Classifier, which
// keeps only games of the tracked series. Surviving cards are handed to the
// field extractors. Each extractor is an ordered chain of strategies: the
// first strategy that yields a value wins, so markup drift in one selector
// falls back to a looser text match instead of losing the field.
package scraper
