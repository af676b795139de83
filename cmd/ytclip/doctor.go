package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cwygoda/ytclip/internal/adapter/processor"
)

var errNotReady = errors.New("prerequisites missing")

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check yt-dlp, ffmpeg and the working directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		report := newDoctor(cfg, processor.NewRunner()).Check(cmd.Context())
		return printReport(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func printReport(w io.Writer, report processor.Report) error {
	for _, t := range report.Tools {
		switch {
		case t.OK:
			fmt.Fprintf(w, "✓ %s: %s (%s)\n", t.Name, t.Version, t.Path)
		case t.Missing:
			fmt.Fprintf(w, "✗ %s: not found at %s\n  Install: %s\n", t.Name, t.Path, t.InstallURL)
		default:
			fmt.Fprintf(w, "✗ %s: %s\n", t.Name, t.Detail)
		}
	}
	for _, d := range report.Dirs {
		if d.Writable {
			fmt.Fprintf(w, "✓ %s directory: %s\n", d.Label, d.Path)
		} else {
			fmt.Fprintf(w, "✗ %s directory not writable: %s\n", d.Label, d.Path)
		}
	}

	if !report.OK() {
		return errNotReady
	}
	fmt.Fprintln(w, "\nAll prerequisites satisfied.")
	return nil
}
