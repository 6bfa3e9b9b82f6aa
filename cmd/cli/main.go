package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fanout",
	Short: "Fan-out timeline pipeline operator CLI",
	Long: `A CLI tool for operating the fan-out-on-write timeline pipeline.

This tool allows you to:
  - Configure the system (worker count, bucket count, cache sizes)
  - Seed the database with test users, follows, and posts
  - Run benchmarks against the post/timeline endpoints
  - View benchmark results`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
