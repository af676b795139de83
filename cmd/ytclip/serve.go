package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	httpAdapter "github.com/cwygoda/ytclip/internal/adapter/http"
	"github.com/cwygoda/ytclip/internal/adapter/processor"
	"github.com/cwygoda/ytclip/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP service (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	limit, err := cfg.MemoryLimitBytes()
	if err != nil {
		return err
	}
	if limit > 0 {
		debug.SetMemoryLimit(limit)
		log.Printf("memory limit: %s", humanize.IBytes(uint64(limit)))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("starting ytclip on port %d", cfg.Port)
	log.Printf("output dir: %s (served at /%s/)", cfg.OutputDir, cfg.OutputFolder)
	log.Printf("temp dir: %s", cfg.TempDir)
	log.Printf("log dir: %s", cfg.LogDir)

	runner := processor.NewRunner()
	svc := newJobService(cfg, runner)
	doctor := newDoctor(cfg, runner)

	report := doctor.Check(cmd.Context())
	for _, t := range report.Tools {
		if !t.OK {
			log.Printf("warning: %s not usable at %s: %s", t.Name, t.Path, t.Detail)
		}
	}

	srv := httpAdapter.NewServer(svc, doctor, httpAdapter.Options{
		Addr:             addr,
		OutputDir:        cfg.OutputDir,
		OutputFolder:     cfg.OutputFolder,
		PublicBaseURL:    cfg.PublicBaseURL,
		MaxExecutionTime: cfg.MaxExecutionTime,
	})

	// Temp files older than two execution ceilings cannot belong to a live job.
	janitor := worker.New(cfg.TempDir, 2*cfg.MaxExecutionTime, cfg.JanitorInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go janitor.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		log.Printf("received signal %v, shutting down", sig)
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	}

	cancel()

	// In-flight jobs get their full execution window to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.MaxExecutionTime+10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("shutdown complete")
	return nil
}
