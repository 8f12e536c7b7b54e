package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"village/internal/config"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type checkFlags struct {
	baseURL     string
	dsn         string
	redisAddr   string
	concurrency int
	duration    time.Duration
	timeout     time.Duration
}

type checkResult struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type checkCase struct {
	Name string
	Run  func(ctx context.Context, r *checkRunner) checkResult
}

type checkRunner struct {
	flags checkFlags
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
	out   io.Writer
}

func newCheckCmd() *cobra.Command {
	var flags checkFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe Postgres, Redis and a running API, then load the quote endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("dsn") {
				flags.dsn = cfg.DB.DSN
			}
			if !cmd.Flags().Changed("redis") {
				flags.redisAddr = cfg.Redis.Addr
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
			defer cancel()

			r := newCheckRunner(flags, cmd.OutOrStdout())
			results := r.RunAll(ctx)
			pass, fail, skip := tally(results)
			fmt.Fprintf(cmd.OutOrStdout(), "PASS=%d FAIL=%d SKIP=%d\n", pass, fail, skip)
			if fail > 0 {
				return codeError(1, "%d checks failed", fail)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.baseURL, "base-url", "http://localhost:8080", "API base URL")
	f.StringVar(&flags.dsn, "dsn", "", "Postgres DSN (defaults to VILLAGE_DB_DSN)")
	f.StringVar(&flags.redisAddr, "redis", "", "Redis address (defaults to VILLAGE_REDIS_ADDR)")
	f.IntVar(&flags.concurrency, "concurrency", 20, "Concurrent clients for the load check")
	f.DurationVar(&flags.duration, "duration", 5*time.Second, "Load check duration; 0 skips it")
	f.DurationVar(&flags.timeout, "timeout", 60*time.Second, "Total timeout")
	return cmd
}

func newCheckRunner(flags checkFlags, out io.Writer) *checkRunner {
	flags.baseURL = strings.TrimRight(flags.baseURL, "/")
	return &checkRunner{
		flags: flags,
		httpc: &http.Client{Timeout: 10 * time.Second},
		out:   out,
	}
}

func (r *checkRunner) RunAll(ctx context.Context) []checkResult {
	if r.flags.dsn != "" {
		if db, err := pgxpool.New(ctx, r.flags.dsn); err == nil {
			r.db = db
			defer db.Close()
		}
	}
	if r.flags.redisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.flags.redisAddr})
		defer r.redis.Close()
	}

	cases := r.cases()
	results := make([]checkResult, 0, len(cases))
	for _, tc := range cases {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Fprintf(r.out, "%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Fprintf(r.out, " (%s)", res.Latency.Round(time.Millisecond))
		}
		if res.Note != "" {
			fmt.Fprintf(r.out, " - %s", res.Note)
		}
		fmt.Fprintln(r.out)
	}
	return results
}

func (r *checkRunner) cases() []checkCase {
	base := r.flags.baseURL
	ride := base + "/api/quotes/ride?from_lat=18.5204&from_lng=73.8567&to_lat=18.5404&to_lng=73.8567&vehicle=auto"
	return []checkCase{
		{
			Name: "Postgres ping",
			Run: func(ctx context.Context, r *checkRunner) checkResult {
				if r.db == nil {
					return checkResult{Status: statusSkip, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return checkResult{Status: statusFail, Note: err.Error()}
				}
				return checkResult{Status: statusPass}
			},
		},
		{
			Name: "Redis ping",
			Run: func(ctx context.Context, r *checkRunner) checkResult {
				if r.redis == nil {
					return checkResult{Status: statusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return checkResult{Status: statusFail, Note: err.Error()}
				}
				return checkResult{Status: statusPass}
			},
		},
		httpCheck("API health", base+"/health", http.StatusOK),
		httpCheck("Ride quote", ride, http.StatusOK),
		httpCheck("Ride quote rejects unknown vehicle", strings.Replace(ride, "vehicle=auto", "vehicle=truck", 1), http.StatusBadRequest),
		httpCheck("Delivery quote", base+"/api/quotes/delivery?shop_id=kirana-main&to_lat=18.5404&to_lng=73.8567", http.StatusOK),
		httpCheck("Shop directory", base+"/api/shops", http.StatusOK),
		httpCheck("Cart requires a token", base+"/api/cart", http.StatusUnauthorized),
		httpCheck("Admin queue requires a token", base+"/api/admin/orders", http.StatusUnauthorized),
		{
			Name: "Ride quote load",
			Run: func(ctx context.Context, r *checkRunner) checkResult {
				return loadCheck(ctx, r, ride)
			},
		},
	}
}

func httpCheck(name, url string, want int) checkCase {
	return checkCase{
		Name: name,
		Run: func(ctx context.Context, r *checkRunner) checkResult {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return checkResult{Status: statusFail, Note: err.Error()}
			}
			start := time.Now()
			resp, err := r.httpc.Do(req)
			if err != nil {
				return checkResult{Status: statusFail, Note: err.Error()}
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			latency := time.Since(start)
			if resp.StatusCode != want {
				return checkResult{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d want=%d", resp.StatusCode, want)}
			}
			return checkResult{Status: statusPass, Latency: latency}
		},
	}
}

func loadCheck(ctx context.Context, r *checkRunner, url string) checkResult {
	if r.flags.duration <= 0 || r.flags.concurrency <= 0 {
		return checkResult{Status: statusSkip, Note: "disabled"}
	}
	end := time.Now().Add(r.flags.duration)
	var (
		mu       sync.Mutex
		count    int
		errCount int
		wg       sync.WaitGroup
	)
	for i := 0; i < r.flags.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				resp, err := r.httpc.Do(req)
				ok := err == nil && resp.StatusCode == http.StatusOK
				if err == nil {
					_, _ = io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
				mu.Lock()
				if ok {
					count++
				} else {
					errCount++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return checkResult{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.flags.duration.Seconds()
	return checkResult{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func tally(results []checkResult) (pass, fail, skip int) {
	for _, res := range results {
		switch res.Status {
		case statusPass:
			pass++
		case statusFail:
			fail++
		case statusSkip:
			skip++
		}
	}
	return pass, fail, skip
}
