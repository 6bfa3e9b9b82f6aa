// Command worker runs one Timeline Worker process, consuming a single
// feed_updates_<id> partition queue until it receives SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ritik/fanout-timeline/internal/cache"
	"github.com/ritik/fanout-timeline/internal/config"
	"github.com/ritik/fanout-timeline/internal/metrics"
	"github.com/ritik/fanout-timeline/internal/store"
	"github.com/ritik/fanout-timeline/internal/worker"
)

func main() {
	id := flag.Int("id", 0, "worker partition id, must be in [0, worker_count)")
	flag.Parse()
	if flag.NArg() > 0 {
		n, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			log.Fatalf("invalid worker id %q: %v", flag.Arg(0), err)
		}
		*id = n
	}

	cfg := config.Get()

	if *id < 0 || *id >= cfg.WorkerCount {
		log.Fatalf("worker id %d out of range [0,%d)", *id, cfg.WorkerCount)
	}

	db, err := store.InitDB(cfg)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close()

	redisClient, err := cache.InitRedis(cfg)
	if err != nil {
		log.Fatalf("failed to initialize cache: %v", err)
	}
	defer cache.Close()

	timelineStore := store.NewTimelineStore(db, cfg)
	feedCache := cache.NewFeedCache(redisClient, cfg)
	reg := metrics.NewRegistry()

	w, err := worker.New(*id, cfg.BrokerURL, cfg.WorkerPrefetch, timelineStore, feedCache, reg)
	if err != nil {
		log.Fatalf("failed to start worker %d: %v", *id, err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.RunWarmupLoop(ctx, 5*time.Minute, 20)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		fmt.Printf("worker[%d]: shutting down...\n", *id)
		cancel()
	}()

	fmt.Printf("worker[%d]: consuming feed_updates_%d, prefetch=%d\n", *id, *id, cfg.WorkerPrefetch)
	if err := w.Run(ctx); err != nil {
		log.Fatalf("worker[%d]: run error: %v", *id, err)
	}

	fmt.Printf("worker[%d]: stopped\n", *id)
}
