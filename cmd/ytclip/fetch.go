package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/cwygoda/ytclip/internal/adapter/processor"
	"github.com/cwygoda/ytclip/internal/domain"
)

var (
	fetchURL   string
	fetchName  string
	fetchStart float64
	fetchEnd   float64
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run a single download job and print the result",
	Long: `Run one download job without starting the HTTP service. The result is
printed as the same JSON the service returns.

Example:
  ytclip fetch --url "https://www.youtube.com/watch?v=dQw4w9WgXcQ" --name intro --start 0 --end 12.5`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "YouTube URL (required)")
	fetchCmd.Flags().StringVar(&fetchName, "name", "", "custom output name")
	fetchCmd.Flags().Float64Var(&fetchStart, "start", 0, "segment start in seconds")
	fetchCmd.Flags().Float64Var(&fetchEnd, "end", 0, "segment end in seconds")
	fetchCmd.MarkFlagRequired("url")
}

func runFetch(cmd *cobra.Command, args []string) error {
	req := domain.JobRequest{SourceURL: fetchURL, CustomName: fetchName}
	if cmd.Flags().Changed("start") {
		req.StartTime = &fetchStart
	}
	if cmd.Flags().Changed("end") {
		req.EndTime = &fetchEnd
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.MaxExecutionTime)
	defer cancel()

	svc := newJobService(cfg, processor.NewRunner())
	return RunFetchWithService(ctx, svc, req, cfg.PublicBaseURL, cmd.OutOrStdout())
}

// JobExecutor runs a decoded job request.
type JobExecutor interface {
	Execute(ctx context.Context, req domain.JobRequest, baseURL string) domain.JobResult
}

// RunFetchWithService runs the fetch command with an injected service (for testing).
func RunFetchWithService(ctx context.Context, svc JobExecutor, req domain.JobRequest, baseURL string, out io.Writer) error {
	res := svc.Execute(ctx, req, baseURL)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if res.Err != nil {
		enc.Encode(map[string]string{"error": res.Err.Message})
		return res.Err
	}
	return enc.Encode(map[string]string{"url": res.PublicURL, "filename": res.Filename})
}
