package main

import (
	"github.com/cwygoda/ytclip/internal/adapter/joblog"
	"github.com/cwygoda/ytclip/internal/adapter/processor"
	"github.com/cwygoda/ytclip/internal/config"
	"github.com/cwygoda/ytclip/internal/domain"
)

// newJobService assembles the pipeline from configuration.
func newJobService(cfg *config.Config, runner domain.CommandRunner) *domain.JobService {
	downloader := processor.NewYouTubeDownloader(runner, processor.DownloadOptions{
		YtDlpPath:     cfg.YtDlpPath,
		FFmpegPath:    cfg.FFmpegPath,
		TempDir:       cfg.TempDir,
		Format:        cfg.Format,
		MergeFormat:   cfg.MergeFormat,
		CookiesPath:   cfg.CookiesPath,
		UserAgent:     cfg.UserAgent,
		ExtractorArgs: cfg.ExtractorArgs,
	})
	trimmer := processor.NewFFmpegTrimmer(cfg.OutputDir,
		processor.WithFFmpegPath(cfg.FFmpegPath),
		processor.WithCommandRunner(runner),
	)
	promoter := processor.NewFilePromoter(cfg.OutputDir)

	return domain.NewJobService(downloader, trimmer, promoter, joblog.NewOpener(cfg.LogDir), domain.Settings{
		OutputDir:    cfg.OutputDir,
		OutputFolder: cfg.OutputFolder,
		TempDir:      cfg.TempDir,
	})
}

func newDoctor(cfg *config.Config, runner domain.CommandRunner) *processor.Doctor {
	return processor.NewDoctor(runner, cfg.YtDlpPath, cfg.FFmpegPath, cfg.OutputDir, cfg.TempDir)
}
