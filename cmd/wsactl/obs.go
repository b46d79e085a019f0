package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"
)

var obsCmd = &cobra.Command{
	Use:   "obs",
	Short: "Observability commands (query VictoriaMetrics)",
}

var vmsingleURL string

type VMResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []struct {
			Metric map[string]string `json:"metric"`
			Value  []interface{}     `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

type namedQuery struct {
	name  string
	query string
}

var obsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show system summary metrics",
	Run: func(cmd *cobra.Command, args []string) {
		runQueries(cmd.OutOrStdout(), []namedQuery{
			{"Build Success Rate", `sum(rate(wsa_build_total{status="succeeded"}[5m])) / sum(rate(wsa_build_total[5m])) * 100`},
			{"Builds Queued Rate", `sum(rate(wsa_builds_queued_total[5m]))`},
			{"HTTP Request Rate", `sum(rate(wsa_http_requests_total[5m]))`},
			{"Queue Depth", `wsa_build_queue_depth`},
			{"Active Requests", `wsa_active_requests`},
		})
	},
}

var obsLatencyCmd = &cobra.Command{
	Use:   "latency",
	Short: "Show latency metrics",
	Run: func(cmd *cobra.Command, args []string) {
		runQueries(cmd.OutOrStdout(), []namedQuery{
			{"HTTP P50", `histogram_quantile(0.5, sum(rate(wsa_http_request_duration_seconds_bucket[5m])) by (le))`},
			{"HTTP P95", `histogram_quantile(0.95, sum(rate(wsa_http_request_duration_seconds_bucket[5m])) by (le))`},
			{"HTTP P99", `histogram_quantile(0.99, sum(rate(wsa_http_request_duration_seconds_bucket[5m])) by (le))`},
			{"Build P95", `histogram_quantile(0.95, sum(rate(wsa_build_duration_seconds_bucket[5m])) by (le))`},
		})
	},
}

var obsQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show build queue metrics",
	Run: func(cmd *cobra.Command, args []string) {
		runQueries(cmd.OutOrStdout(), []namedQuery{
			{"Queue Depth", `wsa_build_queue_depth`},
			{"Active Jobs", `sum(wsa_builder_active_jobs)`},
			{"Empty Poll Rate", `rate(wsa_dequeue_empty_total[5m])`},
		})
	},
}

var obsActionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "Show workspace action metrics",
	Run: func(cmd *cobra.Command, args []string) {
		runQueries(cmd.OutOrStdout(), []namedQuery{
			{"Action Failure Rate", `sum(rate(wsa_action_total{outcome!="ok"}[5m])) / sum(rate(wsa_action_total[5m])) * 100`},
			{"Missing Parameter Rate", `sum(rate(wsa_action_total{outcome="missing_parameters"}[5m]))`},
			{"Actions In Flight", `sum(wsa_actions_in_flight)`},
			{"Action P95", `histogram_quantile(0.95, sum(rate(wsa_action_duration_seconds_bucket[5m])) by (le))`},
		})
	},
}

func runQueries(w io.Writer, queries []namedQuery) {
	for _, q := range queries {
		fmt.Fprintf(w, "%s: %s\n", q.name, queryVM(vmsingleURL, q.query))
	}
}

var vmClient = &http.Client{Timeout: 10 * time.Second}

func queryVM(baseURL, query string) string {
	resp, err := vmClient.Get(baseURL + "/api/v1/query?query=" + url.QueryEscape(query))
	if err != nil {
		return "error: " + err.Error()
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "error: " + resp.Status
	}

	var vmResp VMResponse
	if err := json.NewDecoder(resp.Body).Decode(&vmResp); err != nil {
		return "parse error"
	}

	if len(vmResp.Data.Result) == 0 {
		return "no data"
	}

	result := vmResp.Data.Result[0]
	if len(result.Value) >= 2 {
		return fmt.Sprintf("%v", result.Value[1])
	}
	return "no value"
}

func init() {
	obsCmd.PersistentFlags().StringVar(&vmsingleURL, "vm-url", "http://localhost:8428", "VictoriaMetrics URL")
	obsCmd.AddCommand(obsSummaryCmd, obsLatencyCmd, obsQueueCmd, obsActionsCmd)
	rootCmd.AddCommand(obsCmd)
}
