package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	databaseURL string
	redisURL    string
	timeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "grocerctl",
	Short:         "Operate the grocer backend",
	Long:          "grocerctl runs migrations, seeds sample data, queues price refreshes and compares catalog files offline.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		if databaseURL == "" {
			databaseURL = os.Getenv("DATABASE_URL")
		}
		if redisURL == "" {
			redisURL = os.Getenv("REDIS_URL")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres DSN (default: $DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis-url", "", "Redis URL (default: $REDIS_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(migrateCmd, seedCmd, compareCmd, refreshCmd)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

func requireDatabaseURL() error {
	if databaseURL == "" {
		return fmt.Errorf("database url is required: pass --database-url or set DATABASE_URL")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
