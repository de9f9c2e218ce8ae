package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/netengine/netengine/internal/engine"
	"github.com/netengine/netengine/internal/syncclient"
)

func newSendCmd(configPath *string) *cobra.Command {
	var method string
	var headers []string
	var body string
	var connectTimeout time.Duration
	var transferTimeout time.Duration
	var maxRetries int
	var cancelAfter time.Duration

	cmd := &cobra.Command{
		Use:   "send <url>",
		Short: "send one request through the engine and print its terminal result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, err := loadEngine(*configPath)
			if err != nil {
				return err
			}
			defer eng.Deinitialize()

			if !cmd.Flags().Changed("connect-timeout") {
				connectTimeout = cfg.Timeouts.ConnectTimeout()
			}
			if !cmd.Flags().Changed("transfer-timeout") {
				transferTimeout = cfg.Timeouts.TransferTimeout()
			}

			client := syncclient.NewClient(eng, syncclient.Config{})

			req := engine.NetworkRequest{
				URL:     args[0],
				Method:  engine.Verb(method),
				Body:    []byte(body),
				Headers: headers,
				Settings: engine.RequestSettings{
					ConnectTimeout:  connectTimeout,
					TransferTimeout: transferTimeout,
					MaxRetries:      maxRetries,
				},
			}

			ctx := context.Background()
			if cancelAfter > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cancelAfter)
				defer cancel()
			}

			result, err := client.Do(ctx, req)
			if err != nil {
				return err
			}

			fmt.Printf("status: %d\n", result.Response.Status)
			if result.Response.Error != "" {
				fmt.Printf("error: %s\n", result.Response.Error)
			}
			if len(result.Body) > 0 {
				fmt.Printf("body (%d bytes):\n%s\n", len(result.Body), result.Body)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "GET", "HTTP method")
	cmd.Flags().StringArrayVar(&headers, "header", nil, `request header, "Name: Value" (repeatable)`)
	cmd.Flags().StringVar(&body, "body", "", "request body")
	cmd.Flags().DurationVar(&connectTimeout, "connect-timeout", 10*time.Second, "connect timeout")
	cmd.Flags().DurationVar(&transferTimeout, "transfer-timeout", 60*time.Second, "transfer timeout")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "retries for 5xx/overload responses")
	cmd.Flags().DurationVar(&cancelAfter, "cancel-after", 0, "cancel the request if it hasn't completed by this deadline (0 disables)")

	return cmd
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "report whether the engine is ready and how many slots are in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, err := loadEngine(*configPath)
			if err != nil {
				return err
			}
			defer eng.Deinitialize()

			fmt.Printf("ready: %v\n", eng.Ready())
			fmt.Printf("pending: %d\n", eng.AmountPending())
			fmt.Printf("pool size: %d\n", cfg.Pool.MaxRequestsCount)
			return nil
		},
	}
}
