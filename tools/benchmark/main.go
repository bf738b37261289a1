package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/alitto/pond/v2"
)

const (
	defaultBaseURL     = "http://localhost:8080"
	defaultRequests    = 1000
	defaultConcurrency = 10
	defaultEndpoints   = "record,price,neighbors,history,list,stats"
)

type Config struct {
	BaseURL     string
	Token       string // Bearer token sent to routes that accept a caller
	Names       []string
	Endpoints   []string
	Requests    int           // Total number of requests
	Concurrency int           // Number of concurrent workers
	Timeout     time.Duration // Timeout for each request
	OutputFile  string        // Output markdown file path (optional)
	Debug       bool
}

// endpoint describes one read route of the registry API
type endpoint struct {
	path   func(name string) string
	caller bool
}

var endpoints = map[string]endpoint{
	"record": {path: func(name string) string {
		return "/api/v1/names/" + url.PathEscape(name)
	}},
	"price": {path: func(name string) string {
		return "/api/v1/names/" + url.PathEscape(name) + "/price"
	}, caller: true},
	"neighbors": {path: func(name string) string {
		return "/api/v1/names/" + url.PathEscape(name) + "/neighbors"
	}},
	"history": {path: func(name string) string {
		return "/api/v1/names/" + url.PathEscape(name) + "/history"
	}},
	"list": {path: func(string) string {
		return "/api/v1/names?start=0&end=20"
	}},
	"stats": {path: func(string) string {
		return "/api/v1/stats"
	}},
}

// Result is the outcome of a single request
type Result struct {
	Endpoint string
	Status   int
	Duration time.Duration
	Err      error
}

type EndpointStats struct {
	Endpoint    string
	Count       int
	Succeeded   int
	Failed      int
	RateLimited int
	Latencies   []time.Duration
	P50         time.Duration
	P95         time.Duration
	P99         time.Duration
	Max         time.Duration
}

type BenchmarkStats struct {
	BaseURL     string
	StartTime   time.Time
	Duration    time.Duration
	Requests    int
	Concurrency int
	Interrupted bool
	Endpoints   map[string]*EndpointStats
}

func main() {
	cfg := parseFlags()

	if len(cfg.Names) == 0 {
		fmt.Println("Error: at least one name is required")
		flag.Usage()
		os.Exit(1)
	}
	for _, e := range cfg.Endpoints {
		if _, ok := endpoints[e]; !ok {
			fmt.Printf("Error: unknown endpoint %q\n", e)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	fmt.Printf("Benchmarking %s (requests: %d, concurrency: %d)\n", cfg.BaseURL, cfg.Requests, cfg.Concurrency)
	fmt.Printf("Endpoints: %s\n", strings.Join(cfg.Endpoints, ", "))
	fmt.Printf("Names:     %s\n\n", strings.Join(cfg.Names, ", "))

	client := &http.Client{Timeout: cfg.Timeout}
	stats := runBenchmark(ctx, cfg, client)

	fmt.Println("\n" + strings.Repeat("=", 80))
	if stats.Interrupted {
		fmt.Println("INTERRUPTED - PARTIAL RESULTS")
	} else {
		fmt.Println("BENCHMARK RESULTS")
	}
	fmt.Println(strings.Repeat("=", 80))
	printStats(stats)

	if cfg.OutputFile != "" {
		if err := writeMarkdownReport(cfg.OutputFile, stats); err != nil {
			fmt.Printf("\n⚠️  Warning: Failed to write markdown file: %v\n", err)
		} else {
			fmt.Printf("\n✓ Report written to: %s\n", cfg.OutputFile)
		}
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	var names, eps string
	flag.StringVar(&cfg.BaseURL, "base-url", defaultBaseURL, "Registry API base URL")
	flag.StringVar(&cfg.Token, "token", "", "Bearer token for caller-aware routes (optional)")
	flag.StringVar(&names, "names", "", "Comma-separated names to query")
	flag.StringVar(&eps, "endpoints", defaultEndpoints, "Comma-separated endpoints to exercise")
	flag.StringVar(&cfg.OutputFile, "output", "", "Output markdown file path (optional)")
	flag.BoolVar(&cfg.Debug, "debug", false, "Print every failed request")
	flag.IntVar(&cfg.Requests, "requests", defaultRequests, "Total number of requests")
	flag.IntVar(&cfg.Concurrency, "concurrency", defaultConcurrency, "Number of concurrent workers")

	var timeoutSeconds int
	flag.IntVar(&timeoutSeconds, "timeout", 10, "Timeout for each request in seconds")

	configFile := flag.String("config", "", "Path to config file (optional)")

	flag.Parse()

	cfg.Timeout = time.Duration(timeoutSeconds) * time.Second
	cfg.Names = splitList(names)
	cfg.Endpoints = splitList(eps)

	if cfg.Requests <= 0 {
		cfg.Requests = defaultRequests
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Concurrency > 200 {
		cfg.Concurrency = 200
	}

	// Load from config file if specified
	if *configFile != "" {
		fileCfg, err := LoadConfig(*configFile)
		if err != nil {
			fmt.Printf("Warning: failed to load config file: %v\n", err)
		} else {
			// Override with file values if not set via flags
			if cfg.BaseURL == defaultBaseURL && fileCfg.BaseURL != "" {
				cfg.BaseURL = fileCfg.BaseURL
			}
			if cfg.Token == "" {
				cfg.Token = fileCfg.Token
			}
			if len(cfg.Names) == 0 {
				cfg.Names = fileCfg.Names
			}
		}
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// runBenchmark spreads cfg.Requests over the endpoints and names round-robin
// and collects per-endpoint outcomes
func runBenchmark(ctx context.Context, cfg *Config, client *http.Client) *BenchmarkStats {
	stats := &BenchmarkStats{
		BaseURL:     cfg.BaseURL,
		StartTime:   time.Now(),
		Requests:    cfg.Requests,
		Concurrency: cfg.Concurrency,
		Endpoints:   make(map[string]*EndpointStats),
	}
	for _, e := range cfg.Endpoints {
		stats.Endpoints[e] = &EndpointStats{Endpoint: e}
	}

	var mu sync.Mutex
	pool := pond.NewPool(cfg.Concurrency, pond.WithContext(ctx))
	for i := 0; i < cfg.Requests; i++ {
		ep := cfg.Endpoints[i%len(cfg.Endpoints)]
		name := cfg.Names[(i/len(cfg.Endpoints))%len(cfg.Names)]
		pool.Submit(func() {
			r := doRequest(ctx, client, cfg, ep, name)
			if r.Err != nil && cfg.Debug {
				fmt.Printf("  %s %s: %v\n", ep, name, r.Err)
			}
			mu.Lock()
			stats.Endpoints[ep].record(r)
			mu.Unlock()
		})
	}
	pool.StopAndWait()

	stats.Duration = time.Since(stats.StartTime)
	stats.Interrupted = ctx.Err() != nil
	for _, group := range stats.Endpoints {
		calculateLatencies(group)
	}
	return stats
}

func doRequest(ctx context.Context, client *http.Client, cfg *Config, ep, name string) Result {
	e := endpoints[ep]
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+e.path(name), nil)
	if err != nil {
		return Result{Endpoint: ep, Err: err}
	}
	if e.caller && cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return Result{Endpoint: ep, Duration: time.Since(start), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	r := Result{Endpoint: ep, Status: resp.StatusCode, Duration: time.Since(start)}
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusTooManyRequests {
		r.Err = fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return r
}

func (s *EndpointStats) record(r Result) {
	s.Count++
	switch {
	case r.Status == http.StatusTooManyRequests:
		s.RateLimited++
	case r.Err != nil:
		s.Failed++
	default:
		s.Succeeded++
	}
	if r.Duration > 0 {
		s.Latencies = append(s.Latencies, r.Duration)
	}
}

func calculateLatencies(group *EndpointStats) {
	group.P50 = percentile(group.Latencies, 50)
	group.P95 = percentile(group.Latencies, 95)
	group.P99 = percentile(group.Latencies, 99)
	group.Max = percentile(group.Latencies, 100)
}

func sortedGroups(stats *BenchmarkStats) []*EndpointStats {
	var groups []*EndpointStats
	for _, group := range stats.Endpoints {
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Endpoint < groups[j].Endpoint
	})
	return groups
}

func totals(stats *BenchmarkStats) (count, succeeded, failed, limited int) {
	for _, group := range stats.Endpoints {
		count += group.Count
		succeeded += group.Succeeded
		failed += group.Failed
		limited += group.RateLimited
	}
	return
}

func printStats(stats *BenchmarkStats) {
	count, succeeded, failed, limited := totals(stats)

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("Target:       %s\n", stats.BaseURL)
	fmt.Printf("Start Time:   %s\n", stats.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Printf("Duration:     %s\n", formatDuration(stats.Duration))
	fmt.Printf("Concurrency:  %d\n", stats.Concurrency)
	fmt.Printf("Throughput:   %s\n", formatRate(count, stats.Duration))
	fmt.Println()

	fmt.Printf("Requests Summary:\n")
	fmt.Printf("  Total:        %d\n", count)
	fmt.Printf("  Succeeded:    %d (%s)\n", succeeded, percentageString(succeeded, count))
	if failed > 0 {
		fmt.Printf("  Failed:       %d (%s)\n", failed, percentageString(failed, count))
	}
	if limited > 0 {
		fmt.Printf("  Rate Limited: %d (%s)\n", limited, percentageString(limited, count))
	}
	fmt.Println()

	fmt.Println("Endpoints Breakdown:")
	fmt.Println()
	for _, group := range sortedGroups(stats) {
		fmt.Printf("  %s %s\n", statusEmoji(group.Succeeded, group.Failed, group.RateLimited), group.Endpoint)
		fmt.Printf("    Count:        %d\n", group.Count)
		fmt.Printf("    Succeeded:    %d (%s)\n", group.Succeeded, percentageString(group.Succeeded, group.Count))
		if group.Failed > 0 {
			fmt.Printf("    Failed:       %d (%s)\n", group.Failed, percentageString(group.Failed, group.Count))
		}
		if group.RateLimited > 0 {
			fmt.Printf("    Rate Limited: %d (%s)\n", group.RateLimited, percentageString(group.RateLimited, group.Count))
		}
		fmt.Printf("    Latency:      p50 %s, p95 %s, p99 %s, max %s\n",
			formatDuration(group.P50), formatDuration(group.P95), formatDuration(group.P99), formatDuration(group.Max))
		fmt.Println()
	}

	fmt.Println(strings.Repeat("-", 80))
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

type reportMetadata struct {
	BaseURL         string            `json:"base_url"`
	DurationSeconds float64           `json:"duration_seconds"`
	Concurrency     int               `json:"concurrency"`
	Interrupted     bool              `json:"interrupted"`
	Endpoints       []endpointSummary `json:"endpoints"`
}

type endpointSummary struct {
	Endpoint    string  `json:"endpoint"`
	Count       int     `json:"count"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	RateLimited int     `json:"rate_limited"`
	P50Millis   float64 `json:"p50_ms"`
	P95Millis   float64 `json:"p95_ms"`
	P99Millis   float64 `json:"p99_ms"`
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// writeMarkdownReport writes a markdown report of the benchmark stats
func writeMarkdownReport(filepath string, stats *BenchmarkStats) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()

	count, succeeded, failed, limited := totals(stats)
	groups := sortedGroups(stats)

	_, _ = fmt.Fprintf(file, "# Registry API Benchmark Report\n\n")
	_, _ = fmt.Fprintf(file, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	_, _ = fmt.Fprintf(file, "## Run\n\n")
	_, _ = fmt.Fprintf(file, "| Property | Value |\n")
	_, _ = fmt.Fprintf(file, "|----------|-------|\n")
	_, _ = fmt.Fprintf(file, "| **Target** | `%s` |\n", stats.BaseURL)
	_, _ = fmt.Fprintf(file, "| **Start Time** | %s |\n", stats.StartTime.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(file, "| **Duration** | %s |\n", formatDuration(stats.Duration))
	_, _ = fmt.Fprintf(file, "| **Concurrency** | %d |\n", stats.Concurrency)
	_, _ = fmt.Fprintf(file, "| **Throughput** | %s |\n", formatRate(count, stats.Duration))
	if stats.Interrupted {
		_, _ = fmt.Fprintf(file, "| **Interrupted** | yes |\n")
	}
	_, _ = fmt.Fprintf(file, "\n")

	_, _ = fmt.Fprintf(file, "## Requests Summary\n\n")
	_, _ = fmt.Fprintf(file, "| Metric | Count |\n")
	_, _ = fmt.Fprintf(file, "|--------|-------|\n")
	_, _ = fmt.Fprintf(file, "| **Total** | %d |\n", count)
	_, _ = fmt.Fprintf(file, "| **Succeeded** | %d (%s) |\n", succeeded, percentageString(succeeded, count))
	if failed > 0 {
		_, _ = fmt.Fprintf(file, "| **Failed** | %d (%s) |\n", failed, percentageString(failed, count))
	}
	if limited > 0 {
		_, _ = fmt.Fprintf(file, "| **Rate Limited** | %d (%s) |\n", limited, percentageString(limited, count))
	}
	_, _ = fmt.Fprintf(file, "\n")

	_, _ = fmt.Fprintf(file, "## Endpoints Breakdown\n\n")
	_, _ = fmt.Fprintf(file, "| Endpoint | Count | Succeeded | Failed | Rate Limited | p50 | p95 | p99 | Max |\n")
	_, _ = fmt.Fprintf(file, "|----------|-------|-----------|--------|--------------|-----|-----|-----|-----|\n")
	meta := reportMetadata{
		BaseURL:         stats.BaseURL,
		DurationSeconds: stats.Duration.Seconds(),
		Concurrency:     stats.Concurrency,
		Interrupted:     stats.Interrupted,
	}
	for _, group := range groups {
		_, _ = fmt.Fprintf(file, "| %s %s | %d | %d | %d | %d | %s | %s | %s | %s |\n",
			statusEmoji(group.Succeeded, group.Failed, group.RateLimited), group.Endpoint,
			group.Count, group.Succeeded, group.Failed, group.RateLimited,
			formatDuration(group.P50), formatDuration(group.P95), formatDuration(group.P99), formatDuration(group.Max))
		meta.Endpoints = append(meta.Endpoints, endpointSummary{
			Endpoint:    group.Endpoint,
			Count:       group.Count,
			Succeeded:   group.Succeeded,
			Failed:      group.Failed,
			RateLimited: group.RateLimited,
			P50Millis:   millis(group.P50),
			P95Millis:   millis(group.P95),
			P99Millis:   millis(group.P99),
		})
	}
	_, _ = fmt.Fprintf(file, "\n")

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(file, "---\n\n")
	_, _ = fmt.Fprintf(file, "## Metadata\n\n")
	_, _ = fmt.Fprintf(file, "```json\n%s\n```\n", data)

	return nil
}
