package event

import "strings"

// Keyword tables carry the site's Russian wording plus English equivalents.
var (
	reserveWords        = []string{"резерв", "reserve"}
	signUpWords         = []string{"записаться", "sign up", "register"}
	noSeatsWords        = []string{"нет мест", "no seats"}
	fewSeatsWords       = []string{"мало мест", "few seats left"}
	seatsAvailableWords = []string{"есть места", "seats available"}
	registerWords       = []string{"регистрац", "записаться", "register"}
)

// availabilityRule is one row of the classification table. Rules are checked
// in order and the first match wins.
type availabilityRule struct {
	matches func(button, status string) bool
	result  Availability
}

var availabilityRules = []availabilityRule{
	{func(b, _ string) bool { return containsAny(b, reserveWords) }, AvailabilityReserve},
	{func(b, _ string) bool { return containsAny(b, signUpWords) }, AvailabilityActive},
	{func(b, _ string) bool { return containsAny(b, noSeatsWords) }, AvailabilityReserve},
	{func(_, s string) bool { return containsAny(s, noSeatsWords) && containsAny(s, reserveWords) }, AvailabilityReserve},
	{func(_, s string) bool { return containsAny(s, fewSeatsWords) }, AvailabilityActive},
	{func(_, s string) bool { return containsAny(s, seatsAvailableWords) }, AvailabilityActive},
	{func(_, s string) bool { return containsAny(s, registerWords) }, AvailabilityActive},
}

// ClassifyAvailability maps a button label and status text to an
// availability. The button label is consulted before the status text.
// Matching is case-insensitive. The result is never empty.
func ClassifyAvailability(buttonLabel, statusText string) (Availability, bool) {
	button := strings.ToLower(buttonLabel)
	status := strings.ToLower(statusText)

	for _, rule := range availabilityRules {
		if rule.matches(button, status) {
			return rule.result, rule.result == AvailabilityActive
		}
	}
	return AvailabilityUnknown, false
}

func containsAny(s string, words []string) bool {
	if s == "" {
		return false
	}
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
