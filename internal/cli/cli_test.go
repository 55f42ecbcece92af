package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/quizwatch/quizwatch/internal/crypto"
	"github.com/quizwatch/quizwatch/internal/storage"
)

const testTitle = "Квиз, плиз! KLG"

func card(seq, button string) string {
	return fmt.Sprintf(`<div class="schedule-column"><div class="schedule-block">`+
		`<div class="h2-game-card">%s</div>`+
		`<div class="game-number">#%s</div>`+
		`<div class="block-date-with-language-game">15 июня, воскресенье</div>`+
		`<div class="schedule-info"><div class="techtext">19:30</div></div>`+
		`<div class="schedule-info"><div class="schedule-block-info-bar">Бар «Янтарь»</div></div>`+
		`<a class="button" href="/game-page?id=%s">%s</a>`+
		`</div></div>`, testTitle, seq, seq, button)
}

// schedule serves a page that tests can swap between runs
type schedule struct {
	mu     sync.Mutex
	page   string
	status int
}

func (s *schedule) set(status int, cards ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.page = `<html><body>` + strings.Join(cards, "") + `</body></html>`
}

func (s *schedule) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.WriteHeader(s.status)
	fmt.Fprint(w, s.page)
}

// setup starts a schedule server and writes a config pointing at it
func setup(t *testing.T) (*schedule, string, string) {
	t.Helper()

	sched := &schedule{}
	sched.set(http.StatusOK, card("501", "Записаться"), card("502", "Записаться в резерв"))
	srv := httptest.NewServer(sched)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	cfg := fmt.Sprintf(`source:
  url: %s/schedule
  origin: %s
  timeout: 5s
  max_retries: 0
series:
  title: %q
storage:
  data_dir: %s
schedule:
  timezone: UTC
filter:
  future_days: 0
log:
  level: error
`, srv.URL, srv.URL, testTitle, dataDir)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return sched, path, dataDir
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_CheckExitCodes(t *testing.T) {
	sched, cfg, _ := setup(t)

	code, out, errOut := run(t, "check", "--config", cfg)
	if code != ExitNewEvents {
		t.Fatalf("first check exit = %d, want %d\nstdout: %s\nstderr: %s", code, ExitNewEvents, out, errOut)
	}
	if !strings.Contains(out, "NEW: "+testTitle+" #501") || !strings.Contains(out, "#502") {
		t.Errorf("first check should list both games:\n%s", out)
	}
	if !strings.Contains(out, "--- Message") {
		t.Errorf("stdout channel should print notifications:\n%s", out)
	}

	code, out, _ = run(t, "check", "--config", cfg)
	if code != ExitSuccess {
		t.Fatalf("unchanged check exit = %d, want %d\n%s", code, ExitSuccess, out)
	}
	if !strings.Contains(out, "No new or changed games found (2 tracked)") {
		t.Errorf("unexpected output:\n%s", out)
	}

	sched.set(http.StatusOK, card("501", "Записаться"), card("502", "Записаться"))
	code, out, _ = run(t, "check", "--config", cfg)
	if code != ExitNewEvents {
		t.Fatalf("changed check exit = %d, want %d\n%s", code, ExitNewEvents, out)
	}
	if !strings.Contains(out, "CHANGED: "+testTitle+" #502") || !strings.Contains(out, "(reserve -> active)") {
		t.Errorf("availability change not reported:\n%s", out)
	}
}

func TestRun_CheckJSON(t *testing.T) {
	_, cfg, _ := setup(t)

	code, out, errOut := run(t, "check", "--config", cfg, "--format", "json", "--sort", "seq")
	if code != ExitNewEvents {
		t.Fatalf("exit = %d, want %d: %s", code, ExitNewEvents, errOut)
	}

	var result OutputResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, out)
	}
	if result.Total != 2 || result.Active != 1 || result.Reserve != 1 || result.EventCount != 2 {
		t.Errorf("result = %+v", result)
	}
	if result.NewEvents[0].SequenceNumber != "#501" {
		t.Errorf("games not sorted by sequence: %s", result.NewEvents[0].SequenceNumber)
	}
	if !strings.Contains(errOut, "--- Message") {
		t.Error("notifications should go to stderr with structured output")
	}
}

func TestRun_CheckRefresh(t *testing.T) {
	_, cfg, dataDir := setup(t)

	code, out, _ := run(t, "check", "--config", cfg, "--refresh")
	if code != ExitSuccess {
		t.Fatalf("exit = %d, want %d", code, ExitSuccess)
	}
	if strings.Contains(out, "--- Message") {
		t.Error("refresh should not notify")
	}
	if !strings.Contains(out, "Snapshot refreshed: 2 games stored.") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dataDir, storage.LatestFile)); err != nil {
		t.Errorf("snapshot not stored: %v", err)
	}
}

func TestRun_CheckFetchError(t *testing.T) {
	sched, cfg, _ := setup(t)
	sched.set(http.StatusNotFound)

	code, _, errOut := run(t, "check", "--config", cfg)
	if code != ExitError {
		t.Fatalf("exit = %d, want %d", code, ExitError)
	}
	if !strings.Contains(errOut, "Error: check failed") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestRun_InvalidFlags(t *testing.T) {
	_, cfg, _ := setup(t)

	tests := [][]string{
		{"check", "--config", cfg, "--format", "xml"},
		{"check", "--config", cfg, "--sort", "price"},
		{"history", "--config", cfg, "--limit", "0"},
		{"ics", "--config", cfg},
		{"check", "--config", filepath.Join(t.TempDir(), "missing.yaml")},
	}
	for _, args := range tests {
		t.Run(strings.Join(args[:1], " ")+" "+args[len(args)-1], func(t *testing.T) {
			if code, _, _ := run(t, args...); code != ExitError {
				t.Errorf("exit = %d, want %d", code, ExitError)
			}
		})
	}
}

func TestRun_History(t *testing.T) {
	_, cfg, _ := setup(t)
	run(t, "check", "--config", cfg)

	code, out, errOut := run(t, "history", "--config", cfg, "--format", "json", "--limit", "1")
	if code != ExitSuccess {
		t.Fatalf("exit = %d: %s", code, errOut)
	}
	var entries []*storage.HistoryEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("history is not JSON: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].Event.ID != "game-502" {
		t.Errorf("entries = %+v", entries)
	}

	code, out, _ = run(t, "history", "--config", cfg, "--id", "game-501")
	if code != ExitSuccess {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(out, "#501") || strings.Contains(out, "#502") {
		t.Errorf("--id should select one game:\n%s", out)
	}
}

func TestRun_ICS(t *testing.T) {
	_, cfg, _ := setup(t)
	run(t, "check", "--config", cfg)

	code, out, errOut := run(t, "ics", "--config", cfg, "game-501")
	if code != ExitSuccess {
		t.Fatalf("exit = %d: %s", code, errOut)
	}
	if !strings.Contains(out, "UID:game-501@quizwatch") || !strings.Contains(out, "T193000Z") {
		t.Errorf("unexpected calendar:\n%s", out)
	}

	path := filepath.Join(t.TempDir(), "all.ics")
	if code, _, errOut := run(t, "ics", "--config", cfg, "--all", "-o", path); code != ExitSuccess {
		t.Fatalf("--all exit = %d: %s", code, errOut)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "BEGIN:VEVENT") != 2 {
		t.Errorf("bulk calendar should hold both games:\n%s", data)
	}

	code, _, errOut = run(t, "ics", "--config", cfg, "game-999")
	if code != ExitError || !strings.Contains(errOut, "game-999") {
		t.Errorf("unknown id exit = %d, stderr = %q", code, errOut)
	}
}

func TestRun_Encrypt(t *testing.T) {
	code, out, errOut := run(t, "encrypt", "--key", "passphrase", "123456:secret")
	if code != ExitSuccess {
		t.Fatalf("exit = %d: %s", code, errOut)
	}

	sealed := strings.TrimSpace(out)
	if !crypto.IsEncrypted(sealed) {
		t.Fatalf("output %q lacks the enc: prefix", sealed)
	}
	plain, err := crypto.NewEncryptor("passphrase").Reveal(sealed)
	if err != nil || plain != "123456:secret" {
		t.Errorf("Reveal() = %q, %v", plain, err)
	}
}

func TestRun_EncryptStdin(t *testing.T) {
	cmd := NewRootCmd()
	var stdout bytes.Buffer
	cmd.SetArgs([]string{"encrypt", "--key", "k"})
	cmd.SetIn(strings.NewReader("hook-url\n"))
	cmd.SetOut(&stdout)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	plain, err := crypto.NewEncryptor("k").Reveal(strings.TrimSpace(stdout.String()))
	if err != nil || plain != "hook-url" {
		t.Errorf("Reveal() = %q, %v", plain, err)
	}
}

func TestRun_EncryptNoKey(t *testing.T) {
	t.Setenv(secretKeyEnv, "")
	if code, _, _ := run(t, "encrypt", "value"); code != ExitError {
		t.Errorf("exit = %d, want %d", code, ExitError)
	}
}
