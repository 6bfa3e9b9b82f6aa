package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ritik/fanout-timeline/internal/config"
)

var configFile string

func init() {
	configCmd.PersistentFlags().StringVarP(&configFile, "file", "f", "config.json", "Config file path")

	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify configuration settings for the fan-out pipeline.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Get()

		if _, err := os.Stat(configFile); err == nil {
			cfg.LoadFromFile(configFile)
		}

		fmt.Println("Current Configuration:")
		fmt.Println("======================")
		fmt.Printf("Server Port:          %s\n", cfg.ServerPort)
		fmt.Printf("PostgreSQL Host:      %s:%s\n", cfg.PostgresHost, cfg.PostgresPort)
		fmt.Printf("PostgreSQL Database:  %s\n", cfg.PostgresDB)
		fmt.Printf("Redis Addresses:      %v\n", cfg.RedisAddrs)
		fmt.Printf("Broker URL:           %s\n", cfg.BrokerURL)
		fmt.Println()
		fmt.Println("Timeline Settings:")
		fmt.Printf("  Max Timeline Entries (K): %d\n", cfg.MaxTimelineEntries)
		fmt.Printf("  Ring Capacity (C):        %d\n", cfg.RingCapacity)
		fmt.Printf("  Timeline Page Size:       %d\n", cfg.TimelinePageSize)
		fmt.Println()
		fmt.Println("Fanout Settings:")
		fmt.Printf("  Worker Count (W):   %d\n", cfg.WorkerCount)
		fmt.Printf("  Bucket Count (B):   %d\n", cfg.BucketCount)
		fmt.Printf("  Fanout Batch Size:  %d\n", cfg.FanoutBatchSize)
		fmt.Printf("  Worker Prefetch:    %d\n", cfg.WorkerPrefetch)
		fmt.Println()
		fmt.Println("Benchmark Settings:")
		fmt.Printf("  Default Posts:        %d\n", cfg.BenchmarkPosts)
		fmt.Printf("  Default Concurrent:   %d\n", cfg.BenchmarkConcurrent)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Get()

		if _, err := os.Stat(configFile); err == nil {
			cfg.LoadFromFile(configFile)
		}

		key := args[0]
		var value interface{}

		switch key {
		case "max-timeline-entries", "max_timeline_entries":
			value = cfg.MaxTimelineEntries
		case "ring-capacity", "ring_capacity":
			value = cfg.RingCapacity
		case "timeline-page-size", "timeline_page_size":
			value = cfg.TimelinePageSize
		case "worker-count", "worker_count":
			value = cfg.WorkerCount
		case "bucket-count", "bucket_count":
			value = cfg.BucketCount
		case "server-port", "server_port":
			value = cfg.ServerPort
		case "postgres-host", "postgres_host":
			value = cfg.PostgresHost
		case "broker-url", "broker_url":
			value = cfg.BrokerURL
		default:
			fmt.Printf("Unknown config key: %s\n", key)
			fmt.Println("\nAvailable keys:")
			fmt.Println("  max-timeline-entries")
			fmt.Println("  ring-capacity")
			fmt.Println("  timeline-page-size")
			fmt.Println("  worker-count")
			fmt.Println("  bucket-count")
			fmt.Println("  server-port")
			fmt.Println("  postgres-host")
			fmt.Println("  broker-url")
			os.Exit(1)
		}

		fmt.Printf("%s = %v\n", key, value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Get()

		if _, err := os.Stat(configFile); err == nil {
			cfg.LoadFromFile(configFile)
		}

		key := args[0]
		valueStr := args[1]

		switch key {
		case "max-timeline-entries", "max_timeline_entries":
			value, err := strconv.Atoi(valueStr)
			if err != nil {
				fmt.Printf("Invalid value for %s: %s (must be integer)\n", key, valueStr)
				os.Exit(1)
			}
			cfg.MaxTimelineEntries = value

		case "ring-capacity", "ring_capacity":
			value, err := strconv.Atoi(valueStr)
			if err != nil {
				fmt.Printf("Invalid value for %s: %s (must be integer)\n", key, valueStr)
				os.Exit(1)
			}
			cfg.RingCapacity = value

		case "timeline-page-size", "timeline_page_size":
			value, err := strconv.Atoi(valueStr)
			if err != nil {
				fmt.Printf("Invalid value for %s: %s (must be integer)\n", key, valueStr)
				os.Exit(1)
			}
			cfg.TimelinePageSize = value

		case "worker-count", "worker_count":
			value, err := strconv.Atoi(valueStr)
			if err != nil {
				fmt.Printf("Invalid value for %s: %s (must be integer)\n", key, valueStr)
				os.Exit(1)
			}
			cfg.WorkerCount = value

		case "bucket-count", "bucket_count":
			value, err := strconv.Atoi(valueStr)
			if err != nil {
				fmt.Printf("Invalid value for %s: %s (must be integer)\n", key, valueStr)
				os.Exit(1)
			}
			cfg.BucketCount = value

		case "server-port", "server_port":
			cfg.ServerPort = valueStr

		default:
			fmt.Printf("Unknown or read-only config key: %s\n", key)
			os.Exit(1)
		}

		if err := cfg.SaveToFile(configFile); err != nil {
			fmt.Printf("Failed to save config: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Set %s = %s\n", key, valueStr)
		fmt.Printf("Config saved to %s\n", configFile)
	},
}

func printConfigJSON(cfg *config.Config) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
