package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"
)

// CLI flags
var (
	apiURL      = flag.String("api-url", "http://localhost:8080", "dealsearch API base URL")
	apiKey      = flag.String("api-key", "", "API key for authenticated requests")
	runs        = flag.Int("runs", 3, "Number of rounds per query")
	concurrency = flag.Int("concurrency", 6, "Parallel requests per round (set above MAX_CONCURRENT_PAGES to exercise the gate)")
	output      = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Queries covering dense, sparse and empty result pages.
var testQueries = []struct {
	Label string
	Query string
	Sort  string
}{
	{"Dense", "pizza", ""},
	{"Sorted", "massage", "price:asc"},
	{"Local", "yoga", "distance"},
	{"Sparse", "hot air balloon", "rating"},
	{"Empty", "zzqxv nonexistent deal", ""},
}

// searchResponse mirrors the API response; only the fields the report needs.
type searchResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Data    *struct {
		Name string `json:"name"`
	} `json:"data"`
}

// --- Benchmark result types ---

type requestResult struct {
	Run        int    `json:"run"`
	LatencyMs  int64  `json:"latency_ms"`
	StatusCode int    `json:"status_code"`
	HasDeal    bool   `json:"has_deal"`
	Error      string `json:"error,omitempty"`
}

type querySummary struct {
	AvgMs    float64     `json:"avg_ms"`
	P95Ms    int64       `json:"p95_ms"`
	MaxMs    int64       `json:"max_ms"`
	Statuses map[int]int `json:"statuses"`
}

type queryResult struct {
	Query    string          `json:"query"`
	Label    string          `json:"label"`
	Requests []requestResult `json:"requests"`
	Summary  querySummary    `json:"summary"`
}

type benchmarkReport struct {
	Timestamp   string        `json:"timestamp"`
	APIURL      string        `json:"api_url"`
	Runs        int           `json:"runs"`
	Concurrency int           `json:"concurrency"`
	Results     []queryResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== dealsearch Benchmark ===")
	fmt.Printf("API URL:     %s\n", *apiURL)
	fmt.Printf("Runs:        %d\n", *runs)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Output:      %s\n", *output)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: API at %s is not ready: %v\n", *apiURL, err)
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		APIURL:      *apiURL,
		Runs:        *runs,
		Concurrency: *concurrency,
	}

	client := &http.Client{Timeout: 200 * time.Second}
	for _, q := range testQueries {
		fmt.Printf("Benchmarking [%s] %q ...\n", q.Label, q.Query)
		qr := queryResult{Query: q.Query, Label: q.Label}

		for i := 1; i <= *runs; i++ {
			batch := runRound(client, q.Query, q.Sort, i, *concurrency)
			fmt.Printf("  Round %d/%d: %s\n", i, *runs, describeStatuses(batch))
			qr.Requests = append(qr.Requests, batch...)
		}

		qr.Summary = summarize(qr.Requests)
		report.Results = append(report.Results, qr)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned %d", resp.StatusCode)
	}
	return nil
}

// runRound fires n identical searches at once and waits for all of them.
func runRound(client *http.Client, query, sortOpt string, run, n int) []requestResult {
	results := make([]requestResult, n)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			results[i] = search(ctx, client, query, sortOpt, run)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func search(ctx context.Context, client *http.Client, query, sortOpt string, run int) requestResult {
	rr := requestResult{Run: run}

	params := url.Values{}
	params.Set("query", query)
	if sortOpt != "" {
		params.Set("sort_option", sortOpt)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *apiURL+"/search?"+params.Encode(), nil)
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var sr searchResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&sr)
	rr.LatencyMs = time.Since(start).Milliseconds()
	rr.StatusCode = resp.StatusCode

	switch {
	case decodeErr != nil:
		rr.Error = fmt.Sprintf("decode error: %v", decodeErr)
	case !sr.Success:
		rr.Error = sr.Error
	default:
		rr.HasDeal = sr.Data != nil
	}
	return rr
}

func summarize(reqs []requestResult) querySummary {
	s := querySummary{Statuses: map[int]int{}}
	var latencies []int64
	var total int64
	for _, r := range reqs {
		s.Statuses[r.StatusCode]++
		if r.StatusCode == 0 {
			continue
		}
		latencies = append(latencies, r.LatencyMs)
		total += r.LatencyMs
	}
	if len(latencies) == 0 {
		return s
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	s.AvgMs = float64(total) / float64(len(latencies))
	s.P95Ms = latencies[(len(latencies)*95-1)/100]
	s.MaxMs = latencies[len(latencies)-1]
	return s
}

// describeStatuses renders a status histogram such as "200×4 504×2".
func describeStatuses(reqs []requestResult) string {
	counts := map[int]int{}
	for _, r := range reqs {
		counts[r.StatusCode]++
	}
	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		label := fmt.Sprintf("%d", code)
		if code == 0 {
			label = "ERR"
		}
		parts = append(parts, fmt.Sprintf("%s×%d", label, counts[code]))
	}
	return strings.Join(parts, " ")
}

func printTable(results []queryResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Query\tAvg\tP95\tMax\tStatuses\n")
	fmt.Fprintf(w, "─────\t───\t───\t───\t────────\n")

	for _, r := range results {
		fmt.Fprintf(w, "%s\t%dms\t%dms\t%dms\t%s\n",
			truncate(r.Query, 30),
			int64(r.Summary.AvgMs),
			r.Summary.P95Ms,
			r.Summary.MaxMs,
			describeStatuses(r.Requests),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
