package notifier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API

	"github.com/quizwatch/quizwatch/internal/config"
	"github.com/quizwatch/quizwatch/internal/event"
)

func TestFormatTweet(t *testing.T) {
	long := game("777", event.AvailabilityReserve)
	long.Place = strings.Repeat("Очень длинное название площадки ", 12)

	tests := []struct {
		name     string
		msg      Message
		contains []string
	}{
		{
			name: "new game",
			msg:  Message{Kind: KindNew, Event: game("502", event.AvailabilityActive)},
			contains: []string{
				"Новая игра",
				"Квиз, плиз! KLG #502",
				"15 июня, воскресенье 19:30",
				"Бар «Янтарь»",
				"Есть места",
				"https://klg.quizplease.ru/game-page?id=502",
				"#квиз",
			},
		},
		{
			name:     "changed game",
			msg:      Message{Kind: KindChanged, Event: game("400", event.AvailabilityReserve)},
			contains: []string{"Изменился статус", "#400", "Резерв"},
		},
		{
			name:     "digest",
			msg:      Message{Kind: KindDigest, Overflow: []*event.Event{game("1", event.AvailabilityActive), game("2", event.AvailabilityActive)}},
			contains: []string{"Ещё новых игр: 2", "https://klg.quizplease.ru/schedule"},
		},
		{
			name:     "very long place gets truncated",
			msg:      Message{Kind: KindNew, Event: long},
			contains: []string{"..."},
		},
	}

	r := testReport(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatTweet(tt.msg, r)

			if n := utf8.RuneCountInString(got); n > tweetLimit {
				t.Errorf("formatTweet() length = %d, want <= %d", n, tweetLimit)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("formatTweet() missing %q in tweet:\n%s", want, got)
				}
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("короткий", 280); got != "короткий" {
		t.Errorf("truncateRunes() changed a short string: %q", got)
	}
	got := truncateRunes(strings.Repeat("я", 300), 280)
	if utf8.RuneCountInString(got) != 280 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncateRunes() = %d runes", utf8.RuneCountInString(got))
	}
	if !utf8.ValidString(got) {
		t.Error("truncateRunes() produced invalid UTF-8")
	}
}

func TestNewTwitterNotifier_MissingCredentials(t *testing.T) {
	_, err := NewTwitterNotifier(config.TwitterConfig{ConsumerKey: "k"}, Options{})
	if !errors.Is(err, ErrMissingTwitterCredentials) {
		t.Errorf("NewTwitterNotifier() error = %v, want ErrMissingTwitterCredentials", err)
	}
}

// rewriteTransport sends every request to a test server
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func newTwitterTestNotifier(t *testing.T, handler http.HandlerFunc) *TwitterNotifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	target, _ := url.Parse(srv.URL)
	client := twitter.NewClient(&http.Client{Transport: rewriteTransport{target: target}})
	n := newTwitterNotifier(client, Options{})
	n.pause = 0
	return n
}

func TestTwitterNotifier_Notify(t *testing.T) {
	var mu sync.Mutex
	var statuses []string

	n := newTwitterTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/statuses/update.json") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		mu.Lock()
		statuses = append(statuses, r.PostForm.Get("status"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 1, "text": "ok"}`))
	})

	r := testReport([]*event.Event{game("501", event.AvailabilityActive), game("502", event.AvailabilityActive)}, nil)
	if err := n.Notify(context.Background(), r); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if len(statuses) != 2 {
		t.Fatalf("posted %d tweets, want 2", len(statuses))
	}
	if !strings.Contains(statuses[1], "#502") {
		t.Errorf("second tweet = %q, want game #502", statuses[1])
	}
}

func TestTwitterNotifier_Error(t *testing.T) {
	n := newTwitterTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":[{"code":187,"message":"Status is a duplicate."}]}`))
	})

	r := testReport([]*event.Event{game("501", event.AvailabilityActive)}, nil)
	if err := n.Notify(context.Background(), r); err == nil {
		t.Error("Notify() expected error from API")
	}
}
