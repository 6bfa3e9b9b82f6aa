package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ritik/fanout-timeline/internal/api"
	"github.com/ritik/fanout-timeline/internal/broker"
	"github.com/ritik/fanout-timeline/internal/cache"
	"github.com/ritik/fanout-timeline/internal/config"
	"github.com/ritik/fanout-timeline/internal/metrics"
	"github.com/ritik/fanout-timeline/internal/reactor"
	"github.com/ritik/fanout-timeline/internal/store"
)

func main() {
	cfg := config.Get()

	db, err := store.InitDB(cfg)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := store.RunMigrations(db, "migrations"); err != nil {
		log.Printf("warning: failed to run migrations: %v", err)
	}

	redisClient, err := cache.InitRedis(cfg)
	if err != nil {
		log.Fatalf("failed to initialize cache: %v", err)
	}
	defer cache.Close()

	userStore := store.NewUserStore(db)
	postStore := store.NewPostStore(db)
	followStore := store.NewFollowStore(db)
	timelineStore := store.NewTimelineStore(db, cfg)

	feedCache := cache.NewFeedCache(redisClient, cfg)

	publisher, err := broker.NewPublisher(cfg.BrokerURL, cfg.WorkerCount, cfg.BucketCount, cfg.FanoutBatchSize, cfg.ActiveUserThreshold)
	if err != nil {
		log.Fatalf("failed to initialize fanout publisher: %v", err)
	}
	defer publisher.Close()

	react := reactor.New(followStore, timelineStore, feedCache)
	reg := metrics.NewRegistry()

	handler := api.NewHandler(cfg, postStore, userStore, followStore, timelineStore, feedCache, publisher, react, reg)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		fmt.Printf("server starting on http://localhost:%s\n", cfg.ServerPort)
		fmt.Printf("  worker count: %d, bucket count: %d\n", cfg.WorkerCount, cfg.BucketCount)
		fmt.Println()
		fmt.Println("available endpoints:")
		fmt.Println("   POST   /api/posts             - create a post")
		fmt.Println("   GET    /api/timeline/{user_id} - get user timeline")
		fmt.Println("   POST   /api/follows            - create a follow")
		fmt.Println("   DELETE /api/follows            - remove a follow")
		fmt.Println("   GET    /api/config              - get configuration")
		fmt.Println("   PUT    /api/config              - update configuration")
		fmt.Println("   GET    /api/metrics             - get metrics snapshot")
		fmt.Println("   GET    /health                  - health check")
		fmt.Println()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nshutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	fmt.Println("server stopped")
}
