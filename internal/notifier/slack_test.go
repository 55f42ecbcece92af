package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/slack-go/slack"

	"github.com/quizwatch/quizwatch/internal/config"
	"github.com/quizwatch/quizwatch/internal/event"
)

func TestNewSlackNotifier_MissingWebhook(t *testing.T) {
	if _, err := NewSlackNotifier(config.SlackConfig{}, Options{}); !errors.Is(err, ErrMissingWebhook) {
		t.Errorf("NewSlackNotifier() error = %v, want ErrMissingWebhook", err)
	}
}

func TestSlackNotifier_Notify(t *testing.T) {
	var got []slack.WebhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg slack.WebhookMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		got = append(got, msg)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	n, err := NewSlackNotifier(config.SlackConfig{WebhookURL: srv.URL, Channel: "#quiz"}, Options{SendSummary: true})
	if err != nil {
		t.Fatalf("NewSlackNotifier() error = %v", err)
	}

	r := testReport([]*event.Event{game("501", event.AvailabilityActive)}, nil)
	if err := n.Notify(context.Background(), r); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("posted %d messages, want 2", len(got))
	}
	if got[0].Channel != "#quiz" {
		t.Errorf("channel = %q, want #quiz", got[0].Channel)
	}
	if !strings.Contains(got[0].Text, "<https://klg.quizplease.ru/game-page?id=501|Записаться>") {
		t.Errorf("game message missing link:\n%s", got[0].Text)
	}
	if !strings.Contains(got[1].Text, "Всего игр: 1") {
		t.Errorf("summary message wrong:\n%s", got[1].Text)
	}
}

func TestSlackNotifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n, err := NewSlackNotifier(config.SlackConfig{WebhookURL: srv.URL}, Options{})
	if err != nil {
		t.Fatalf("NewSlackNotifier() error = %v", err)
	}

	r := testReport([]*event.Event{game("501", event.AvailabilityActive)}, nil)
	if err := n.Notify(context.Background(), r); err == nil {
		t.Error("Notify() expected error on 500")
	}
}

func TestFormatSlack_Escapes(t *testing.T) {
	evt := game("1", event.AvailabilityActive)
	evt.Place = "Bar <One> & Co"

	got := formatSlack(Message{Kind: KindNew, Event: evt}, testReport(nil, nil))
	if !strings.Contains(got, "Bar &lt;One&gt; &amp; Co") {
		t.Errorf("formatSlack() did not escape:\n%s", got)
	}
}
