//go:build integration

package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"

	httpAdapter "github.com/cwygoda/ytclip/internal/adapter/http"
	"github.com/cwygoda/ytclip/internal/adapter/joblog"
	"github.com/cwygoda/ytclip/internal/adapter/processor"
	"github.com/cwygoda/ytclip/internal/domain"
)

const outputFolder = "youtube_downloads"

// jobContext holds test state for job scenarios
type jobContext struct {
	root      string
	binDir    string
	outputDir string
	tempDir   string
	baseURL   string

	ytdlpExts    []string
	ytdlpMsg     string
	ytdlpCode    int
	ytdlpMissing bool
	ffmpegSize   int

	status int
	body   map[string]string
}

// SharedJobContext is reset before each scenario via Before hook
var SharedJobContext *jobContext

func getJobContext() *jobContext {
	return SharedJobContext
}

func InitializeJobScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		root, err := os.MkdirTemp("", "ytclip-features-")
		if err != nil {
			return c, err
		}
		SharedJobContext = &jobContext{
			root:       root,
			binDir:     filepath.Join(root, "bin"),
			outputDir:  filepath.Join(root, outputFolder),
			tempDir:    filepath.Join(root, "temp_yt_downloads"),
			ffmpegSize: -1,
		}
		return c, os.MkdirAll(SharedJobContext.binDir, 0755)
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedJobContext != nil {
			os.RemoveAll(SharedJobContext.root)
		}
		SharedJobContext = nil
		return c, nil
	})

	ctx.Step(`^the public base URL is "([^"]*)"$`, thePublicBaseURLIs)
	ctx.Step(`^yt-dlp produces "([^"]*)"$`, ytDlpProduces)
	ctx.Step(`^yt-dlp fails with "([^"]*)"$`, ytDlpFailsWith)
	ctx.Step(`^yt-dlp is not installed$`, ytDlpIsNotInstalled)
	ctx.Step(`^ffmpeg writes (\d+) bytes$`, ffmpegWritesBytes)
	ctx.Step(`^I POST the JSON:$`, iPostTheJSON)
	ctx.Step(`^I send a "([^"]*)" request$`, iSendARequest)
	ctx.Step(`^the response status should be (\d+)$`, theResponseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, theResponseFieldShouldBe)
	ctx.Step(`^the response error should be "([^"]*)"$`, theResponseErrorShouldBe)
	ctx.Step(`^the response error should contain "([^"]*)"$`, theResponseErrorShouldContain)
	ctx.Step(`^the file "([^"]*)" should be published$`, theFileShouldBePublished)
	ctx.Step(`^no file should be published$`, noFileShouldBePublished)
	ctx.Step(`^the temp directory should be empty$`, theTempDirectoryShouldBeEmpty)
	ctx.Step(`^a job log should contain "([^"]*)"$`, aJobLogShouldContain)
	ctx.Step(`^yt-dlp should not have run$`, ytDlpShouldNotHaveRun)
	ctx.Step(`^ffmpeg should not have run$`, ffmpegShouldNotHaveRun)
}

func thePublicBaseURLIs(url string) error {
	getJobContext().baseURL = url
	return nil
}

func ytDlpProduces(exts string) error {
	getJobContext().ytdlpExts = strings.Split(exts, ",")
	return nil
}

func ytDlpFailsWith(msg string) error {
	jc := getJobContext()
	jc.ytdlpMsg = msg
	jc.ytdlpCode = 1
	return nil
}

func ytDlpIsNotInstalled() error {
	getJobContext().ytdlpMissing = true
	return nil
}

func ffmpegWritesBytes(size int) error {
	getJobContext().ffmpegSize = size
	return nil
}

func iPostTheJSON(doc *godog.DocString) error {
	return getJobContext().send(http.MethodPost, doc.Content)
}

func iSendARequest(method string) error {
	return getJobContext().send(method, "")
}

func theResponseStatusShouldBe(status int) error {
	jc := getJobContext()
	if jc.status != status {
		return fmt.Errorf("expected status %d, got %d (body %v)", status, jc.status, jc.body)
	}
	return nil
}

func theResponseFieldShouldBe(field, want string) error {
	if got := getJobContext().body[field]; got != want {
		return fmt.Errorf("expected %s %q, got %q", field, want, got)
	}
	return nil
}

func theResponseErrorShouldBe(want string) error {
	if got := getJobContext().body["error"]; got != want {
		return fmt.Errorf("expected error %q, got %q", want, got)
	}
	return nil
}

func theResponseErrorShouldContain(want string) error {
	if got := getJobContext().body["error"]; !strings.Contains(got, want) {
		return fmt.Errorf("expected error containing %q, got %q", want, got)
	}
	return nil
}

func theFileShouldBePublished(name string) error {
	info, err := os.Stat(filepath.Join(getJobContext().outputDir, name))
	if err != nil {
		return fmt.Errorf("expected %s to be published: %w", name, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("published file %s is empty", name)
	}
	return nil
}

func noFileShouldBePublished() error {
	files, err := filesWithout(getJobContext().outputDir, ".log")
	if err != nil {
		return err
	}
	if len(files) > 0 {
		return fmt.Errorf("expected no published files, found %v", files)
	}
	return nil
}

func theTempDirectoryShouldBeEmpty() error {
	files, err := filesWithout(getJobContext().tempDir, "")
	if err != nil {
		return err
	}
	if len(files) > 0 {
		return fmt.Errorf("expected empty temp directory, found %v", files)
	}
	return nil
}

func aJobLogShouldContain(text string) error {
	logs, err := filepath.Glob(filepath.Join(getJobContext().outputDir, "yt_*.log"))
	if err != nil {
		return err
	}
	for _, path := range logs {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if strings.Contains(string(data), text) {
			return nil
		}
	}
	return fmt.Errorf("no job log among %v contains %q", logs, text)
}

func ytDlpShouldNotHaveRun() error {
	return notRun(filepath.Join(getJobContext().binDir, "yt-dlp.args"), "yt-dlp")
}

func ffmpegShouldNotHaveRun() error {
	return notRun(filepath.Join(getJobContext().binDir, "ffmpeg.args"), "ffmpeg")
}

func notRun(argsFile, tool string) error {
	if _, err := os.Stat(argsFile); err == nil {
		return fmt.Errorf("expected %s not to run", tool)
	}
	return nil
}

// send wires the real pipeline around the fake tools and issues one request.
func (jc *jobContext) send(method, body string) error {
	ytdlp := filepath.Join(jc.binDir, "yt-dlp")
	if !jc.ytdlpMissing {
		if err := jc.writeYtDlp(ytdlp); err != nil {
			return err
		}
	}
	ffmpeg := filepath.Join(jc.binDir, "ffmpeg")
	if err := jc.writeFFmpeg(ffmpeg); err != nil {
		return err
	}

	runner := processor.NewRunner()
	downloader := processor.NewYouTubeDownloader(runner, processor.DownloadOptions{
		YtDlpPath:  ytdlp,
		FFmpegPath: ffmpeg,
		TempDir:    jc.tempDir,
		Format:     "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]",
	})
	trimmer := processor.NewFFmpegTrimmer(jc.outputDir,
		processor.WithFFmpegPath(ffmpeg),
		processor.WithCommandRunner(runner),
	)
	svc := domain.NewJobService(downloader, trimmer, processor.NewFilePromoter(jc.outputDir),
		joblog.NewOpener(jc.outputDir), domain.Settings{
			OutputDir:    jc.outputDir,
			OutputFolder: outputFolder,
			TempDir:      jc.tempDir,
		})
	srv := httpAdapter.NewServer(svc, nil, httpAdapter.Options{
		OutputDir:        jc.outputDir,
		OutputFolder:     outputFolder,
		PublicBaseURL:    jc.baseURL,
		MaxExecutionTime: time.Minute,
	})

	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	jc.status = rec.Code
	jc.body = map[string]string{}
	if err := json.NewDecoder(rec.Body).Decode(&jc.body); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (jc *jobContext) writeYtDlp(path string) error {
	argsFile := path + ".args"
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "printf '%%s\\n' \"$@\" > '%s'\n", argsFile)
	b.WriteString("tmpl=\"\"\n")
	b.WriteString("while [ $# -gt 0 ]; do\n  if [ \"$1\" = \"-o\" ]; then tmpl=\"$2\"; fi\n  shift\ndone\n")
	for _, ext := range jc.ytdlpExts {
		fmt.Fprintf(&b, "out=$(printf '%%s' \"$tmpl\" | sed 's/%%(ext)s/%s/')\n", ext)
		b.WriteString("dd if=/dev/zero of=\"$out\" bs=1024 count=8 2>/dev/null\n")
	}
	if jc.ytdlpMsg != "" {
		fmt.Fprintf(&b, "echo '%s' 1>&2\n", jc.ytdlpMsg)
	}
	fmt.Fprintf(&b, "exit %d\n", jc.ytdlpCode)
	return os.WriteFile(path, []byte(b.String()), 0755)
}

func (jc *jobContext) writeFFmpeg(path string) error {
	argsFile := path + ".args"
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "printf '%%s\\n' \"$@\" > '%s'\n", argsFile)
	b.WriteString("for a in \"$@\"; do last=\"$a\"; done\n")
	if jc.ffmpegSize >= 0 {
		fmt.Fprintf(&b, "dd if=/dev/zero of=\"$last\" bs=1 count=%d 2>/dev/null\n", jc.ffmpegSize)
	}
	b.WriteString("exit 0\n")
	return os.WriteFile(path, []byte(b.String()), 0755)
}

func filesWithout(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if ext != "" && strings.HasSuffix(e.Name(), ext) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
