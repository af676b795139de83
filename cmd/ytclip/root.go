package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cwygoda/ytclip/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ytclip",
	Short: "Download YouTube videos and cut segments out of them",
	Long: `ytclip downloads a YouTube video with yt-dlp, optionally cuts a time
range out of it with ffmpeg, and publishes the result as a static file.

Run without a subcommand to start the HTTP service.

Example:
  ytclip --config ytclip.toml
  ytclip fetch --url https://youtu.be/dQw4w9WgXcQ --start 30 --end 45`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runServe,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (.toml or .yaml; env YTCLIP_CONFIG)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: failed to load .env: %v", err)
	}

	if cfgFile == "" {
		cfgFile = os.Getenv("YTCLIP_CONFIG")
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return nil
}
