package transform

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidfetch/internal/deps"
	"vidfetch/internal/extractor"
	"vidfetch/internal/history"
	"vidfetch/internal/logging"
	"vidfetch/internal/metrics"
	"vidfetch/internal/runner"
	"vidfetch/internal/services"
	"vidfetch/internal/staging"
	"vidfetch/internal/textutil"
)

const (
	// TempPrefix starts the name of every file the pipeline writes.
	TempPrefix = "vidfetch-"
	// StaleTempAge is the age past which leftover temp files are swept.
	StaleTempAge = time.Hour

	maxRefToken     = 40
	historyDeadline = 5 * time.Second
)

// Extractor resolves metadata and builds download commands.
type Extractor interface {
	FetchInfo(ctx context.Context, ref extractor.Reference) (*extractor.Info, error)
	DownloadCommand(ref extractor.Reference, selector, dest string, merge bool) runner.Command
}

// Recorder stores finished jobs.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

// Options configures a Pipeline.
type Options struct {
	Extractor Extractor
	Runner    runner.Runner
	// FFmpeg is the transcoder binary; empty resolves it through the standard
	// search order.
	FFmpeg  string
	TempDir string
	History Recorder
	Logger  *slog.Logger
}

// Pipeline opens transform jobs.
type Pipeline struct {
	extractor Extractor
	runner    runner.Runner
	ffmpeg    string
	tempDir   string
	history   Recorder
	logger    *slog.Logger

	mu   sync.Mutex
	jobs map[string]*Job
}

// New validates options and creates the temp dir.
func New(opts Options) (*Pipeline, error) {
	if opts.Extractor == nil || opts.Runner == nil {
		return nil, services.Wrap(services.ErrValidation, "transform", "init", "extractor and runner are required", nil)
	}
	tempDir := strings.TrimSpace(opts.TempDir)
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "vidfetch")
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir %q: %w", tempDir, err)
	}
	ffmpeg := strings.TrimSpace(opts.FFmpeg)
	if ffmpeg == "" {
		ffmpeg = deps.Resolve(deps.FFmpegCommand)
	}
	return &Pipeline{
		extractor: opts.Extractor,
		runner:    opts.Runner,
		ffmpeg:    ffmpeg,
		tempDir:   tempDir,
		history:   opts.History,
		logger:    logging.NewComponentLogger(opts.Logger, "transform"),
		jobs:      make(map[string]*Job),
	}, nil
}

// TempDir is where intermediate files are written.
func (p *Pipeline) TempDir() string { return p.tempDir }

// SweepStale removes temp files left behind by a previous run.
func (p *Pipeline) SweepStale(ctx context.Context) int {
	result := staging.CleanStale(ctx, p.tempDir, StaleTempAge, staging.Filter{Prefix: TempPrefix, Files: true}, p.logger)
	if n := len(result.Removed); n > 0 {
		p.logger.Info("stale transform files removed", logging.Int("removed", n))
	}
	return len(result.Removed)
}

// Usage reports the temp files currently on disk.
func (p *Pipeline) Usage() (staging.Usage, error) {
	return staging.MeasureUsage(p.tempDir, staging.Filter{Prefix: TempPrefix, Files: true})
}

// Active is the number of jobs not yet finished.
func (p *Pipeline) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

// CancelAll cancels every running job and waits for their cleanup.
func (p *Pipeline) CancelAll() {
	p.mu.Lock()
	jobs := make([]*Job, 0, len(p.jobs))
	for _, job := range p.jobs {
		jobs = append(jobs, job)
	}
	p.mu.Unlock()
	for _, job := range jobs {
		job.Cancel()
		<-job.Done()
	}
}

// Open validates req, runs every acquisition and transform step, and returns
// a stream over the result. Cancelling ctx at any point kills the job's
// processes and removes its files. The caller must Close the stream.
func (p *Pipeline) Open(ctx context.Context, req Request) (*Stream, error) {
	job := p.newJob(ctx, req)
	logger := job.logger

	info, format, err := p.prepare(job.ctx, req)
	if err != nil {
		job.fail(err)
		return nil, err
	}
	if err := job.transition(StateAcquiring); err != nil {
		job.fail(err)
		return nil, err
	}

	plan := planFor(req, format)
	job.setPath(plan.path)
	quality := format.QualityLabel
	if quality == "" {
		quality = format.FormatID
	}
	filename := Filename(info.Title, quality, req.Encoding, req.Clip)
	logger.Info("transform started",
		logging.String("reference", req.Reference.String()),
		logging.String("format", format.FormatID),
		logging.String("quality", quality),
		logging.String("path", string(plan.path)),
		logging.Bool("clip", plan.clip != nil),
		logging.Bool("h264", plan.encode),
	)

	var stream *Stream
	if plan.path == PathDirect {
		stream, err = p.openDirect(job, plan)
	} else {
		stream, err = p.openFile(job, plan)
	}
	if err != nil {
		job.fail(err)
		return nil, err
	}
	stream.filename = filename
	return stream, nil
}

// prepare fetches metadata and rejects bad requests before the download
// starts.
func (p *Pipeline) prepare(ctx context.Context, req Request) (*extractor.Info, extractor.Format, error) {
	if req.Clip != nil {
		if err := ValidateClip(req.Clip.Start, req.Clip.End, 0); err != nil {
			return nil, extractor.Format{}, err
		}
	}
	info, err := p.extractor.FetchInfo(ctx, req.Reference)
	if err != nil {
		return nil, extractor.Format{}, err
	}
	if req.Clip != nil {
		if err := ValidateClip(req.Clip.Start, req.Clip.End, info.Duration); err != nil {
			return nil, extractor.Format{}, err
		}
	}
	if req.FormatID == "" && req.Quality == "" && req.Reference.Platform != extractor.PlatformYouTube {
		return info, bestFormat, nil
	}
	format, err := extractor.Resolve(info.Formats, req.FormatID, req.Quality)
	if err != nil {
		return nil, extractor.Format{}, err
	}
	return info, format, nil
}

func (p *Pipeline) openDirect(job *Job, plan plan) (*Stream, error) {
	if err := job.transition(StateDirect); err != nil {
		return nil, err
	}
	cmd := p.extractor.DownloadCommand(job.request.Reference, plan.selector, "-", false)
	proc, err := p.runner.Start(job.ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := job.attach(proc); err != nil {
		return nil, err
	}
	if err := job.transition(StateStreaming); err != nil {
		return nil, err
	}
	return &Stream{job: job, body: proc.Stdout(), proc: proc, size: -1}, nil
}

func (p *Pipeline) openFile(job *Job, plan plan) (*Stream, error) {
	if err := job.transition(StateAcquireToFile); err != nil {
		return nil, err
	}
	current := job.tempPath("master")
	if err := job.track(current); err != nil {
		return nil, err
	}
	cmd := p.extractor.DownloadCommand(job.request.Reference, plan.selector, current, true)
	if _, err := p.runner.Run(job.ctx, cmd); err != nil {
		return nil, extractor.FromExtractor(err)
	}
	if _, err := os.Stat(current); err != nil {
		return nil, services.Wrap(services.ErrProcessExit, "transform", "acquire", "extractor produced no output file", err)
	}

	if plan.clip != nil {
		next, err := p.ffmpegStep(job, StateClipping, current, "clip", ClipArgs(current, job.tempPath("clip"), *plan.clip))
		if err != nil {
			return nil, err
		}
		current = next
	}
	if plan.encode {
		next, err := p.ffmpegStep(job, StateEncoding, current, "h264", EncodeArgs(current, job.tempPath("h264")))
		if err != nil {
			return nil, err
		}
		current = next
	}

	if err := job.transition(StateStreaming); err != nil {
		return nil, err
	}
	file, err := os.Open(current)
	if err != nil {
		return nil, fmt.Errorf("open transform output: %w", err)
	}
	if err := job.addCloser(file); err != nil {
		return nil, err
	}
	size := int64(-1)
	if stat, err := file.Stat(); err == nil {
		size = stat.Size()
	}
	return &Stream{job: job, body: file, file: current, size: size}, nil
}

// ffmpegStep runs one transcoder pass from src into the stage's temp file.
// src is removed afterwards whatever the outcome.
func (p *Pipeline) ffmpegStep(job *Job, state State, src, stage string, args []string) (string, error) {
	if err := job.transition(state); err != nil {
		return "", err
	}
	dst := job.tempPath(stage)
	if err := job.track(dst); err != nil {
		return "", err
	}
	started := time.Now()
	_, err := p.runner.Run(job.ctx, runner.Command{Name: p.ffmpeg, Args: args})
	job.release(src)
	if err != nil {
		return "", err
	}
	job.logger.Debug("transcoder step finished",
		logging.String("stage", stage),
		logging.Duration("elapsed", time.Since(started)),
	)
	return dst, nil
}

func (p *Pipeline) newJob(ctx context.Context, req Request) *Job {
	id := uuid.NewString()
	jobCtx, cancel := context.WithCancel(services.WithJobID(ctx, id))
	job := &Job{
		id:       id,
		request:  req,
		started:  time.Now(),
		tempBase: filepath.Join(p.tempDir, tempName(req)),
		ctx:      jobCtx,
		cancel:   cancel,
		logger:   logging.WithContext(jobCtx, p.logger),
		onDone:   p.finished,
		state:    StatePending,
		path:     PathNone,
		done:     make(chan struct{}),
	}
	p.mu.Lock()
	p.jobs[id] = job
	p.mu.Unlock()
	metrics.JobsActive.Inc()
	return job
}

func (p *Pipeline) finished(job *Job) {
	p.mu.Lock()
	delete(p.jobs, job.id)
	p.mu.Unlock()

	state := job.State()
	path := job.Path()
	elapsed := job.Elapsed()
	err := job.Err()

	metrics.JobsActive.Dec()
	metrics.JobsTotal.WithLabelValues(string(path), string(state)).Inc()
	metrics.JobDuration.WithLabelValues(string(path)).Observe(elapsed.Seconds())

	attrs := []logging.Attr{
		logging.String("state", string(state)),
		logging.String("path", string(path)),
		logging.Int64("bytes", job.Bytes()),
		logging.Duration("elapsed", elapsed),
	}
	switch state {
	case StateFailed:
		logging.WarnWithContext(job.logger, "transform failed", "transform_failed",
			append(attrs,
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hintFor(err)),
				logging.String(logging.FieldImpact, "download aborted"),
			)...,
		)
	case StateCancelled:
		job.logger.Info("transform cancelled", logging.Args(attrs...)...)
	default:
		job.logger.Info("transform finished", logging.Args(attrs...)...)
	}

	if p.history == nil {
		return
	}
	entry := history.Entry{
		JobID:      job.id,
		Reference:  job.request.Reference.String(),
		Format:     job.request.describeFormat(),
		Path:       string(path),
		State:      string(state),
		Bytes:      job.Bytes(),
		Duration:   elapsed,
		StartedAt:  job.started,
		FinishedAt: job.started.Add(elapsed),
	}
	if err != nil {
		entry.ErrorKind = string(services.KindOf(err))
		entry.ErrorMessage = err.Error()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(job.ctx), historyDeadline)
	defer cancel()
	if recErr := p.history.Record(ctx, entry); recErr != nil {
		logging.WarnWithContext(job.logger, "failed to record job history", "history_record_failed",
			logging.Error(recErr),
			logging.String(logging.FieldErrorHint, "check the history database"),
			logging.String(logging.FieldImpact, "job missing from vidfetch history"),
		)
	}
}

func hintFor(err error) string {
	switch services.KindOf(err) {
	case services.KindSpawn:
		return "install yt-dlp and ffmpeg or pin their paths under [binaries]"
	case services.KindValidation:
		return "check the requested format and clip range"
	case services.KindProcessExit:
		return "inspect the stderr tail; updating yt-dlp often helps"
	default:
		return "see error for details"
	}
}

// tempName is unique per job: reference, quality, a timestamp, and random
// bytes keep concurrent jobs for the same video apart.
func tempName(req Request) string {
	ref := textutil.SanitizeToken(req.Reference.Value)
	if len(ref) > maxRefToken {
		ref = ref[:maxRefToken]
	}
	quality := textutil.SanitizeToken(req.describeFormat())
	return fmt.Sprintf("%s%s-%s-%d-%s", TempPrefix, ref, quality, time.Now().UnixNano(), randomHex(4))
}

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
