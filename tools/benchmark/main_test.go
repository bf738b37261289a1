package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{
			name:     "milliseconds",
			duration: 500 * time.Millisecond,
			want:     "500ms",
		},
		{
			name:     "seconds",
			duration: 5 * time.Second,
			want:     "5.00s",
		},
		{
			name:     "minutes",
			duration: 2*time.Minute + 30*time.Second,
			want:     "2m 30s",
		},
		{
			name:     "hours",
			duration: 1*time.Hour + 15*time.Minute,
			want:     "1h 15m",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatDuration(tt.duration)
			if got != tt.want {
				t.Errorf("formatDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPercentageString(t *testing.T) {
	tests := []struct {
		name  string
		part  int
		total int
		want  string
	}{
		{"half", 5, 10, "50.00%"},
		{"all", 10, 10, "100.00%"},
		{"zero total", 5, 0, "0.00%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := percentageString(tt.part, tt.total)
			if got != tt.want {
				t.Errorf("percentageString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusEmoji(t *testing.T) {
	tests := []struct {
		name    string
		passed  int
		failed  int
		limited int
		want    string
	}{
		{"failed", 1, 1, 1, "❌"},
		{"rate limited", 5, 0, 1, "🟡"},
		{"passed", 5, 0, 0, "✅"},
		{"none", 0, 0, 0, "⚪"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statusEmoji(tt.passed, tt.failed, tt.limited)
			if got != tt.want {
				t.Errorf("statusEmoji() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		duration time.Duration
		want     string
	}{
		{"1 per second", 10, 10 * time.Second, "1.00/s"},
		{"2 per second", 20, 10 * time.Second, "2.00/s"},
		{"zero duration", 10, 0, "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatRate(tt.count, tt.duration)
			if got != tt.want {
				t.Errorf("formatRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	var samples []time.Duration
	for i := 10; i >= 1; i-- {
		samples = append(samples, time.Duration(i)*time.Millisecond)
	}

	tests := []struct {
		p    float64
		want time.Duration
	}{
		{50, 5 * time.Millisecond},
		{95, 10 * time.Millisecond},
		{100, 10 * time.Millisecond},
		{1, 1 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := percentile(samples, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	if got := percentile(nil, 50); got != 0 {
		t.Errorf("percentile(nil) = %v, want 0", got)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" alpha, ,beta,")
	if len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Errorf("splitList() = %v", got)
	}
	if got := splitList(""); len(got) != 0 {
		t.Errorf("splitList(\"\") = %v, want empty", got)
	}
}

func TestRunBenchmark(t *testing.T) {
	var authed int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/stats":
			w.WriteHeader(http.StatusTooManyRequests)
		case strings.HasSuffix(r.URL.Path, "/price"):
			if r.Header.Get("Authorization") == "Bearer tok" {
				atomic.AddInt32(&authed, 1)
			}
			_, _ = w.Write([]byte(`{"price":"1000"}`))
		case r.URL.Path == "/api/v1/names/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	cfg := &Config{
		BaseURL:     server.URL,
		Token:       "tok",
		Names:       []string{"alpha", "missing"},
		Endpoints:   []string{"record", "price", "stats"},
		Requests:    12,
		Concurrency: 3,
	}
	stats := runBenchmark(context.Background(), cfg, server.Client())

	if stats.Interrupted {
		t.Fatal("benchmark should not be interrupted")
	}
	record := stats.Endpoints["record"]
	if record.Count != 4 || record.Succeeded != 2 || record.Failed != 2 {
		t.Errorf("record stats = %+v", record)
	}
	price := stats.Endpoints["price"]
	if price.Count != 4 || price.Succeeded != 4 {
		t.Errorf("price stats = %+v", price)
	}
	if got := atomic.LoadInt32(&authed); got != 4 {
		t.Errorf("authenticated price requests = %d, want 4", got)
	}
	limited := stats.Endpoints["stats"]
	if limited.Count != 4 || limited.RateLimited != 4 {
		t.Errorf("stats endpoint = %+v", limited)
	}

	count, succeeded, failed, rateLimited := totals(stats)
	if count != 12 || succeeded != 6 || failed != 2 || rateLimited != 4 {
		t.Errorf("totals = %d %d %d %d", count, succeeded, failed, rateLimited)
	}

	path := filepath.Join(t.TempDir(), "report.md")
	if err := writeMarkdownReport(path, stats); err != nil {
		t.Fatalf("writeMarkdownReport() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# Registry API Benchmark Report", "| ❌ record | 4 | 2 | 2 | 0 |", `"rate_limited": 4`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bench.json")
	want := &BenchmarkConfig{BaseURL: "http://registry:8080", Token: "tok", Names: []string{"alpha"}}
	if err := SaveConfig(path, want); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if got.BaseURL != want.BaseURL || got.Token != want.Token || len(got.Names) != 1 {
		t.Errorf("LoadConfig() = %+v, want %+v", got, want)
	}
}
