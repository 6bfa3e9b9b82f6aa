package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ritik/fanout-timeline/internal/config"
	"github.com/ritik/fanout-timeline/internal/models"
	"github.com/ritik/fanout-timeline/internal/store"
	"github.com/spf13/cobra"
)

var (
	benchServerURL  string
	benchPosts      int
	benchReads      int
	benchConcurrent int
	benchOutput     string
)

func init() {
	benchmarkCmd.Flags().StringVar(&benchServerURL, "server", "http://localhost:8080", "Base URL of a running fanout server")
	benchmarkCmd.Flags().IntVar(&benchPosts, "posts", 1000, "Number of posts to create")
	benchmarkCmd.Flags().IntVar(&benchReads, "reads", 2000, "Number of timeline reads")
	benchmarkCmd.Flags().IntVar(&benchConcurrent, "concurrent", 50, "Number of concurrent workers")
	benchmarkCmd.Flags().StringVar(&benchOutput, "output", "", "Output file for results (JSON)")

	rootCmd.AddCommand(benchmarkCmd)
}

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Load-test the running fan-out pipeline",
	Long: `Drive POST /api/posts and GET /api/timeline/{user_id} against a
running server and report write/read latency percentiles, throughput,
and the cache hit rate observed over the run.

Requires a seeded database ('fanout seed') and a running server plus
at least one worker process.`,
	Run: runBenchmark,
}

func runBenchmark(cmd *cobra.Command, args []string) {
	fmt.Println("🏃 Running benchmark...")
	fmt.Printf("   Server:     %s\n", benchServerURL)
	fmt.Printf("   Posts:      %d\n", benchPosts)
	fmt.Printf("   Reads:      %d\n", benchReads)
	fmt.Printf("   Concurrent: %d\n", benchConcurrent)
	fmt.Println()

	cfg := config.Get()
	ctx := context.Background()

	db, err := store.InitDB(cfg)
	if err != nil {
		fmt.Printf("❌ Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	userStore := store.NewUserStore(db)
	users, err := userStore.GetRandomUsers(ctx, 1000)
	if err != nil || len(users) == 0 {
		fmt.Printf("❌ No users found. Run 'fanout seed' first.\n")
		os.Exit(1)
	}

	fmt.Printf("📊 Found %d users for benchmarking\n\n", len(users))

	client := &http.Client{Timeout: 10 * time.Second}

	hitsBefore, missesBefore := fetchCacheCounters(client)

	result := &models.BenchmarkResult{
		Label:      "fanout-on-write",
		TotalPosts: benchPosts,
		TotalReads: benchReads,
		Timestamp:  time.Now(),
	}

	fmt.Printf("   Posting %d posts with %d workers...\n", benchPosts, benchConcurrent)
	writeLatencies := benchmarkWrites(client, users, benchPosts, benchConcurrent)

	fmt.Printf("   Reading %d timelines with %d workers...\n", benchReads, benchConcurrent)
	readLatencies := benchmarkReads(client, users, benchReads, benchConcurrent)

	hitsAfter, missesAfter := fetchCacheCounters(client)
	hitDelta := hitsAfter - hitsBefore
	missDelta := missesAfter - missesBefore

	result.WriteLatencyP50 = percentile(writeLatencies, 50)
	result.WriteLatencyP95 = percentile(writeLatencies, 95)
	result.WriteLatencyP99 = percentile(writeLatencies, 99)
	result.WriteLatencyAvg = avg(writeLatencies)

	result.ReadLatencyP50 = percentile(readLatencies, 50)
	result.ReadLatencyP95 = percentile(readLatencies, 95)
	result.ReadLatencyP99 = percentile(readLatencies, 99)
	result.ReadLatencyAvg = avg(readLatencies)

	totalWriteTime := sum(writeLatencies)
	totalReadTime := sum(readLatencies)

	result.WriteThroughput = float64(len(writeLatencies)) / totalWriteTime.Seconds() * float64(benchConcurrent)
	result.ReadThroughput = float64(len(readLatencies)) / totalReadTime.Seconds() * float64(benchConcurrent)
	if hitDelta+missDelta > 0 {
		result.CacheHitRate = float64(hitDelta) / float64(hitDelta+missDelta)
	}
	result.Duration = totalWriteTime + totalReadTime

	results := []*models.BenchmarkResult{result}
	printResults(results)

	if benchOutput != "" {
		saveResults(results, benchOutput)
	}
}

// fetchCacheCounters reads the feed.cache.hit/miss counters off the
// running server's metrics snapshot, used to derive the hit rate over
// just this benchmark run rather than the server's whole lifetime.
func fetchCacheCounters(client *http.Client) (hits, misses int64) {
	resp, err := client.Get(benchServerURL + "/api/metrics")
	if err != nil {
		return 0, 0
	}
	defer resp.Body.Close()

	var snapshot struct {
		Counters map[string]int64 `json:"counters"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return 0, 0
	}
	return snapshot.Counters["feed.cache.hit"], snapshot.Counters["feed.cache.miss"]
}

func benchmarkWrites(client *http.Client, users []*models.User, count, concurrent int) []time.Duration {
	latencies := make([]time.Duration, 0, count)
	var mu sync.Mutex
	var wg sync.WaitGroup

	perWorker := count / concurrent
	var completed int64

	sampleBodies := []string{
		"Benchmark post #1",
		"Testing the system",
		"Performance test in progress",
		"Just another post",
		"Measuring latency",
	}

	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for j := 0; j < perWorker; j++ {
				user := users[rand.Intn(len(users))]
				body := sampleBodies[rand.Intn(len(sampleBodies))]

				payload, _ := json.Marshal(map[string]interface{}{
					"author_id": user.ID,
					"body":      body,
				})

				start := time.Now()
				resp, err := client.Post(benchServerURL+"/api/posts", "application/json", bytes.NewReader(payload))
				elapsed := time.Since(start)

				if err == nil {
					resp.Body.Close()
					if resp.StatusCode == http.StatusCreated {
						mu.Lock()
						latencies = append(latencies, elapsed)
						mu.Unlock()
					}
				}

				c := atomic.AddInt64(&completed, 1)
				if c%100 == 0 {
					fmt.Printf("   Progress: %d/%d posts\r", c, count)
				}
			}
		}()
	}

	wg.Wait()
	fmt.Printf("   Progress: %d/%d posts\n", count, count)

	return latencies
}

func benchmarkReads(client *http.Client, users []*models.User, count, concurrent int) []time.Duration {
	latencies := make([]time.Duration, 0, count)
	var mu sync.Mutex
	var wg sync.WaitGroup

	perWorker := count / concurrent
	var completed int64

	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for j := 0; j < perWorker; j++ {
				user := users[rand.Intn(len(users))]

				start := time.Now()
				resp, err := client.Get(fmt.Sprintf("%s/api/timeline/%d", benchServerURL, user.ID))
				elapsed := time.Since(start)

				if err == nil {
					resp.Body.Close()
					if resp.StatusCode == http.StatusOK {
						mu.Lock()
						latencies = append(latencies, elapsed)
						mu.Unlock()
					}
				}

				c := atomic.AddInt64(&completed, 1)
				if c%100 == 0 {
					fmt.Printf("   Progress: %d/%d reads\r", c, count)
				}
			}
		}()
	}

	wg.Wait()
	fmt.Printf("   Progress: %d/%d reads\n", count, count)

	return latencies
}

func printResults(results []*models.BenchmarkResult) {
	fmt.Println("═══════════════════════════════════════════════════════════════════")
	fmt.Println("                        BENCHMARK RESULTS                           ")
	fmt.Println("═══════════════════════════════════════════════════════════════════")
	fmt.Println()

	for _, r := range results {
		fmt.Printf("%-15s │ write p50 %-10s │ write p95 %-10s │ read p50 %-10s │ read p95 %-10s\n",
			r.Label,
			r.WriteLatencyP50.Round(time.Microsecond),
			r.WriteLatencyP95.Round(time.Microsecond),
			r.ReadLatencyP50.Round(time.Microsecond),
			r.ReadLatencyP95.Round(time.Microsecond),
		)
	}

	fmt.Println()
	fmt.Println("Throughput & Cache:")
	for _, r := range results {
		fmt.Printf("%-15s │ %-15.1f writes/s │ %-15.1f reads/s │ %-12.1f%% cache hit\n",
			r.Label,
			r.WriteThroughput,
			r.ReadThroughput,
			r.CacheHitRate*100,
		)
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════════")
}

func saveResults(results []*models.BenchmarkResult, filename string) {
	jsonResults := make([]models.BenchmarkResultJSON, len(results))
	for i, r := range results {
		jsonResults[i] = r.ToJSON()
	}

	data, err := json.MarshalIndent(jsonResults, "", "  ")
	if err != nil {
		fmt.Printf("❌ Failed to marshal results: %v\n", err)
		return
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		fmt.Printf("❌ Failed to write results: %v\n", err)
		return
	}

	fmt.Printf("📄 Results saved to %s\n", filename)
}

func percentile(durations []time.Duration, p int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func avg(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

func sum(durations []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total
}
