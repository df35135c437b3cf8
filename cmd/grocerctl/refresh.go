package main

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-grocer/internal/jobs"
)

var refreshVendors []string

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Queue a live price refresh for vendors",
	RunE: func(cmd *cobra.Command, args []string) error {
		if redisURL == "" {
			return fmt.Errorf("redis url is required: pass --redis-url or set REDIS_URL")
		}
		opt, err := asynq.ParseRedisURI(redisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		client := asynq.NewClient(opt)
		defer client.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		for _, v := range refreshVendors {
			id, err := jobs.EnqueuePriceRefresh(ctx, client, v)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s refresh as %s\n", v, id)
		}
		return nil
	},
}

func init() {
	refreshCmd.Flags().StringSliceVar(&refreshVendors, "vendor", nil, "Vendor slug to refresh (repeatable)")
	_ = refreshCmd.MarkFlagRequired("vendor")
}
