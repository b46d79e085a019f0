package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lzjever/mbos-wsa/internal/builder"
	"github.com/lzjever/mbos-wsa/internal/healthclient"
	"github.com/lzjever/mbos-wsa/internal/theme"
)

var (
	pingBuilderAddr string
	pingTimeout     time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure API latency and check builder health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), pingTimeout)
		defer cancel()

		r := newRenderer(cmd.OutOrStdout())
		latency, err := newClient().Ping(ctx)
		if err != nil {
			logger().Debug("ping failed", zap.Error(err))
			latency = 0
		}
		fmt.Fprintf(cmd.OutOrStdout(), "API %s: %s\n", apiURL, r.LatencyBadge(latency, false))

		if pingBuilderAddr == "" {
			return err
		}
		hc, herr := healthclient.New(pingBuilderAddr)
		if herr != nil {
			return herr
		}
		defer hc.Close()
		status, herr := hc.Check(ctx, builder.ServiceName)
		if herr != nil {
			return fmt.Errorf("builder health: %w", herr)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Builder %s: %s\n", pingBuilderAddr, status)
		return err
	},
}

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Print the color theme",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if output == "json" {
			return printResult(cmd.OutOrStdout(), theme.Light)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(theme.Light); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	pingCmd.Flags().StringVar(&pingBuilderAddr, "builder", "", "Builder gRPC address to health-check")
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 5*time.Second, "Overall timeout")
	rootCmd.AddCommand(pingCmd, themeCmd)
}
