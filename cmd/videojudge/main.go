package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var configPath string

	rootCmd := &cobra.Command{
		Use:          "videojudge",
		Short:        "Answer a yes/no question about a video with a vision model",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the TOML config file (default ./config.toml)")

	rootCmd.AddCommand(runCmd(&configPath))
	rootCmd.AddCommand(analyzeCmd(&configPath))
	rootCmd.AddCommand(summarizeCmd(&configPath))
	rootCmd.AddCommand(similarCmd(&configPath))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
