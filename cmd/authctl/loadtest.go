package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/debtflow/authcore/kv"
	"github.com/debtflow/authcore/session"
	"github.com/debtflow/authcore/token"
	"github.com/redis/go-redis/v9"
)

func runLoadTest(args []string) error {
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	var (
		users       = fs.Int("users", 10000, "number of users to seed a session for")
		concurrency = fs.Int("concurrency", 256, "number of concurrent workers")
		ops         = fs.Int("ops", 100000, "operations per phase (authorize + login)")
		redisURL    = fs.String("redis-url", "", "redis URL; if empty, miniredis is used")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		return errors.New("users, concurrency, and ops must be > 0")
	}

	ctx := context.Background()

	var client redis.UniversalClient
	if *redisURL == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		opts, err := redis.ParseURL(*redisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opts)
		fmt.Printf("using redis at %s\n", opts.Addr)
	}
	defer client.Close()

	issuer, err := token.NewIssuer(token.Config{
		Access:  token.ProfileConfig{TTL: 15 * time.Minute, SigningMethod: token.MethodHS256, PrivateKey: randomSecret()},
		Refresh: token.ProfileConfig{TTL: 7 * 24 * time.Hour, SigningMethod: token.MethodHS256, PrivateKey: randomSecret()},
	})
	if err != nil {
		return err
	}
	manager := session.NewManager(kv.NewRedis(client), issuer, session.Config{})

	principals := make([]session.Principal, *users)
	sids := make([]string, *users)
	fmt.Printf("seeding %d sessions...\n", *users)
	startSeed := time.Now()
	for i := range principals {
		principals[i] = session.Principal{
			ID:    fmt.Sprintf("load-user-%d", i),
			Email: fmt.Sprintf("load-%d@example.test", i),
		}
		tokens, err := manager.CreateOrReuse(ctx, principals[i])
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		sids[i] = tokens.SessionID
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authorize := runPhase(*ops, *concurrency, 7919, func(r *mrand.Rand) error {
		ok, err := manager.Exists(ctx, sids[r.Intn(len(sids))])
		if err == nil && !ok {
			err = session.ErrSessionExpired
		}
		return err
	})
	login := runPhase(*ops, *concurrency, 6151, func(r *mrand.Rand) error {
		idx := r.Intn(len(principals))
		tokens, err := manager.CreateOrReuse(ctx, principals[idx])
		if err == nil && tokens.SessionID != sids[idx] {
			err = errors.New("session not reused")
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("authorize", authorize)
	printStats("login", login)
	return nil
}

func randomSecret() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		fmt.Fprintf(os.Stderr, "random secret: %v\n", err)
		os.Exit(1)
	}
	return b
}

// runPhase spreads ops calls of op over concurrency workers and records the
// latency of each.
func runPhase(ops, concurrency int, seed int64, op func(r *mrand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures,
		s.total.Round(time.Millisecond), s.opsPerS,
		s.p50, s.p95, s.p99)
}
