package transform_test

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vidfetch/internal/extractor"
	"vidfetch/internal/logging"
	"vidfetch/internal/runner"
	"vidfetch/internal/services"
	"vidfetch/internal/transform"
)

const sampleInfo = `{
  "id": "dQw4w9WgXcQ",
  "title": "Sample\nVideo",
  "duration": 212,
  "formats": [
    {"format_id": "140", "ext": "m4a", "vcodec": "none", "acodec": "mp4a.40.2", "abr": 129.5},
    {"format_id": "136", "ext": "mp4", "vcodec": "avc1", "acodec": "none", "height": 720},
    {"format_id": "22", "ext": "mp4", "vcodec": "avc1", "acodec": "mp4a.40.2", "height": 720},
    {"format_id": "299", "ext": "mp4", "vcodec": "avc1", "acodec": "none", "height": 1080}
  ]
}`

// Download behaviours baked into the stub extractor.
const (
	modeNormal = `if [ "$out" = "-" ]; then printf 'direct:%s' "$sel"; exit 0; fi
printf 'master:%s' "$sel" > "$out"`
	modeSlowFile   = `printf 'partial' > "$out.part"; sleep 30`
	modeSlowDirect = `printf 'chunk'; sleep 30`
	modeFailDirect = `printf 'partial'; echo 'ERROR: boom' >&2; exit 1`
)

type harness struct {
	pipeline *transform.Pipeline
	tempDir  string
	calls    string
	ffmpeg   string
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
}

func newHarness(t *testing.T, mode string) *harness {
	t.Helper()
	return newHarnessFailingAt(t, mode, "")
}

// newHarnessFailingAt builds a harness whose ffmpeg stub writes partial output
// and exits 1 when it runs the named step ("clip" or "h264").
func newHarnessFailingAt(t *testing.T, mode, failStep string) *harness {
	t.Helper()
	tools := t.TempDir()
	h := &harness{
		tempDir: filepath.Join(t.TempDir(), "work"),
		calls:   filepath.Join(tools, "calls.log"),
		ffmpeg:  filepath.Join(tools, "ffmpeg.log"),
	}
	infoPath := filepath.Join(tools, "info.json")
	if err := os.WriteFile(infoPath, []byte(sampleInfo), 0o644); err != nil {
		t.Fatalf("write info: %v", err)
	}

	ytdlp := filepath.Join(tools, "yt-dlp")
	writeScript(t, ytdlp, `echo "$*" >> '`+h.calls+`'
out=""; sel=""; json=0
while [ $# -gt 0 ]; do
  case "$1" in
    -j) json=1 ;;
    -o) shift; out="$1" ;;
    -f) shift; sel="$1" ;;
  esac
  shift
done
if [ "$json" = 1 ]; then cat '`+infoPath+`'; exit 0; fi
`+mode)

	ffmpeg := filepath.Join(tools, "ffmpeg")
	writeScript(t, ffmpeg, `for a in "$@"; do out="$a"; done
in=""; stage=h264; prev=""
for a in "$@"; do
  if [ "$prev" = "-i" ]; then in="$a"; fi
  if [ "$a" = "-ss" ]; then stage=clip; fi
  prev="$a"
done
echo "$stage" >> '`+h.ffmpeg+`'
if [ "$stage" = "`+failStep+`" ]; then
  printf 'partial' > "$out"
  echo 'Invalid data found when processing input' >&2
  exit 1
fi
{ cat "$in"; printf '|%s' "$stage"; } > "$out"`)

	exec := runner.NewExec(logging.NewNop())
	client := extractor.NewClient(extractor.Options{Runner: exec, Binary: ytdlp, Logger: logging.NewNop()})
	pipeline, err := transform.New(transform.Options{
		Extractor: client,
		Runner:    exec,
		FFmpeg:    ffmpeg,
		TempDir:   h.tempDir,
		Logger:    logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.pipeline = pipeline
	return h
}

func (h *harness) tempFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.tempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (h *harness) downloadCalls(t *testing.T) int {
	t.Helper()
	data, err := os.ReadFile(h.calls)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0
		}
		t.Fatalf("read calls: %v", err)
	}
	count := 0
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line != "" && !strings.Contains(line, " -j ") {
			count++
		}
	}
	return count
}

func youtube(t *testing.T) extractor.Reference {
	t.Helper()
	ref, err := extractor.ParseReference("youtube", "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("ParseReference: %v", err)
	}
	return ref
}

func waitDone(t *testing.T, job *transform.Job) {
	t.Helper()
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job cleanup did not finish")
	}
}

func TestValidateClip(t *testing.T) {
	cases := []struct {
		name       string
		start, end float64
		wantErr    string
	}{
		{"end before start", 10, 5, "end time must be after start time"},
		{"negative start", -1, 50, "start time cannot be negative"},
		{"past duration", 0, 130, "end time exceeds video duration"},
		{"too short", 10, 10.5, "clip must be at least 1 second long"},
		{"nan range", math.NaN(), math.NaN(), "clip times must be finite numbers"},
		{"nan end", 10, math.NaN(), "clip times must be finite numbers"},
		{"infinite end", 0, math.Inf(1), "clip times must be finite numbers"},
		{"negative infinite start", math.Inf(-1), 10, "clip times must be finite numbers"},
		{"valid", 10, 70, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := transform.ValidateClip(tc.start, tc.end, 120)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected %q validation error, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to transform.State
		want     bool
	}{
		{transform.StatePending, transform.StateAcquiring, true},
		{transform.StatePending, transform.StateStreaming, false},
		{transform.StateAcquiring, transform.StateDirect, true},
		{transform.StateDirect, transform.StateClipping, false},
		{transform.StateAcquireToFile, transform.StateEncoding, true},
		{transform.StateClipping, transform.StateEncoding, true},
		{transform.StateEncoding, transform.StateClipping, false},
		{transform.StateStreaming, transform.StateCompleted, true},
		{transform.StateEncoding, transform.StateCancelled, true},
		{transform.StateCompleted, transform.StateCancelled, false},
		{transform.StateCancelled, transform.StateCancelled, false},
	}
	for _, tc := range cases {
		if got := transform.CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestSelector(t *testing.T) {
	withHeight := extractor.Format{FormatID: "136", QualityLabel: "720p", HasVideo: true, Height: 720}
	want := "best[height=720][vcodec!=none][acodec!=none]/bestvideo[height=720]+bestaudio/best[height<=720]/best"
	if got := transform.Selector(withHeight); got != want {
		t.Fatalf("unexpected selector %q", got)
	}
	fromLabel := extractor.Format{FormatID: "299", QualityLabel: "1080p60", HasVideo: true}
	if got := transform.Selector(fromLabel); !strings.HasPrefix(got, "best[height=1080]") {
		t.Fatalf("expected height from label, got %q", got)
	}
	videoOnly := extractor.Format{FormatID: "399", HasVideo: true}
	if got := transform.Selector(videoOnly); got != "399+bestaudio/399/best" {
		t.Fatalf("unexpected video-only selector %q", got)
	}
	audio := extractor.Format{FormatID: "140", QualityLabel: "130kbps", HasAudio: true}
	if got := transform.Selector(audio); got != "140/best" {
		t.Fatalf("unexpected audio selector %q", got)
	}
}

func TestArgs(t *testing.T) {
	clip := strings.Join(transform.ClipArgs("in.mp4", "out.mp4", transform.ClipRange{Start: 10, End: 70.5}), " ")
	if clip != "-ss 10 -to 70.5 -i in.mp4 -c copy -movflags +faststart -avoid_negative_ts make_zero -y out.mp4" {
		t.Fatalf("unexpected clip args %q", clip)
	}
	encode := strings.Join(transform.EncodeArgs("in.mp4", "out.mp4"), " ")
	for _, want := range []string{"-c:v libx264", "-profile:v high", "-level:v 4.1", "-pix_fmt yuv420p", "-c:a aac", "-ar 48000", "-ac 2", "-movflags +faststart"} {
		if !strings.Contains(encode, want) {
			t.Fatalf("encode args %q missing %q", encode, want)
		}
	}
}

func TestFilename(t *testing.T) {
	got := transform.Filename("My Video!", "720p", transform.EncodingH264, &transform.ClipRange{Start: 10, End: 70})
	if got != "My_Video_720p_h264_clip_10s-70s.mp4" {
		t.Fatalf("unexpected filename %q", got)
	}
	if got := transform.Filename("Plain", "360p", transform.EncodingOriginal, nil); got != "Plain_360p.mp4" {
		t.Fatalf("unexpected filename %q", got)
	}
}

func TestParseEncoding(t *testing.T) {
	if transform.ParseEncoding("H264") != transform.EncodingH264 {
		t.Fatal("expected h264")
	}
	if transform.ParseEncoding("av1") != transform.EncodingOriginal {
		t.Fatal("unknown encodings fall back to original")
	}
}

func TestDirectPathStreamsExtractorOutput(t *testing.T) {
	h := newHarness(t, modeNormal)
	stream, err := h.pipeline.Open(context.Background(), transform.Request{Reference: youtube(t), FormatID: "22"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()

	if stream.Job().Path() != transform.PathDirect {
		t.Fatalf("expected direct path, got %s", stream.Job().Path())
	}
	if stream.Size() != -1 {
		t.Fatalf("direct stream size should be unknown, got %d", stream.Size())
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "direct:22" {
		t.Fatalf("unexpected body %q", data)
	}
	waitDone(t, stream.Job())
	if stream.Job().State() != transform.StateCompleted {
		t.Fatalf("expected completed, got %s", stream.Job().State())
	}
	if stream.Filename() != "Sample_Video_720p.mp4" || stream.ContentType() != "video/mp4" {
		t.Fatalf("unexpected headers %q %q", stream.Filename(), stream.ContentType())
	}
	if files := h.tempFiles(t); len(files) != 0 {
		t.Fatalf("direct path must not write temp files: %v", files)
	}
}

func TestNonYouTubeDirectUsesBest(t *testing.T) {
	h := newHarness(t, modeNormal)
	ref, err := extractor.ParseReference("instagram", "https://www.instagram.com/reel/abc/")
	if err != nil {
		t.Fatalf("ParseReference: %v", err)
	}
	stream, err := h.pipeline.Open(context.Background(), transform.Request{Reference: ref})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()
	data, err := io.ReadAll(stream)
	if err != nil || string(data) != "direct:best" {
		t.Fatalf("unexpected body %q (%v)", data, err)
	}
}

func TestVideoOnlyFormatMergesThroughFile(t *testing.T) {
	h := newHarness(t, modeNormal)
	stream, err := h.pipeline.Open(context.Background(), transform.Request{Reference: youtube(t), FormatID: "299"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()
	if stream.Job().Path() != transform.PathFile {
		t.Fatalf("expected file path, got %s", stream.Job().Path())
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !strings.HasPrefix(string(data), "master:best[height=1080]") {
		t.Fatalf("unexpected body %q", data)
	}
	if files := h.tempFiles(t); len(files) != 0 {
		t.Fatalf("expected output removed after EOF, found %v", files)
	}
}

func TestClipThenEncode(t *testing.T) {
	h := newHarness(t, modeNormal)
	stream, err := h.pipeline.Open(context.Background(), transform.Request{
		Reference: youtube(t),
		Quality:   "720",
		Clip:      &transform.ClipRange{Start: 10, End: 70},
		Encoding:  transform.EncodingH264,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()

	// Only the final output survives once the pipeline reaches streaming.
	if files := h.tempFiles(t); len(files) != 1 || !strings.HasSuffix(files[0], ".h264.mp4") {
		t.Fatalf("expected only the encoded file, found %v", files)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !strings.HasPrefix(string(data), "master:best[height=720]") || !strings.HasSuffix(string(data), "|clip|h264") {
		t.Fatalf("expected clip before encode, got %q", data)
	}
	if stream.Size() != int64(len(data)) {
		t.Fatalf("size %d does not match body %d", stream.Size(), len(data))
	}
	order, err := os.ReadFile(h.ffmpeg)
	if err != nil {
		t.Fatalf("read ffmpeg log: %v", err)
	}
	if strings.Fields(string(order))[0] != "clip" {
		t.Fatalf("unexpected step order %q", order)
	}
	if stream.Filename() != "Sample_Video_720p_h264_clip_10s-70s.mp4" {
		t.Fatalf("unexpected filename %q", stream.Filename())
	}
	waitDone(t, stream.Job())
	if files := h.tempFiles(t); len(files) != 0 {
		t.Fatalf("expected no temp files after EOF, found %v", files)
	}
}

func TestCancelTwiceLeavesNoTempFiles(t *testing.T) {
	h := newHarness(t, modeNormal)
	stream, err := h.pipeline.Open(context.Background(), transform.Request{
		Reference: youtube(t),
		FormatID:  "22",
		Clip:      &transform.ClipRange{Start: 0, End: 30},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	job := stream.Job()
	if len(h.tempFiles(t)) == 0 {
		t.Fatal("expected the clip output on disk before cancel")
	}

	job.Cancel()
	job.Cancel()
	waitDone(t, job)

	if job.State() != transform.StateCancelled {
		t.Fatalf("expected cancelled, got %s", job.State())
	}
	if files := h.tempFiles(t); len(files) != 0 {
		t.Fatalf("expected zero temp files, found %v", files)
	}
	if _, err := stream.Read(make([]byte, 8)); !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected cancelled read, got %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestCancelDuringAcquireKillsExtractor(t *testing.T) {
	h := newHarness(t, modeSlowFile)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			matches, _ := filepath.Glob(filepath.Join(h.tempDir, "*.part"))
			if len(matches) > 0 {
				cancel()
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		cancel()
	}()

	started := time.Now()
	_, err := h.pipeline.Open(ctx, transform.Request{Reference: youtube(t), Quality: "720p", Encoding: transform.EncodingH264})
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
	if time.Since(started) > 10*time.Second {
		t.Fatal("extractor was not killed on cancel")
	}
	if files := h.tempFiles(t); len(files) != 0 {
		t.Fatalf("expected partial download removed, found %v", files)
	}
	if h.pipeline.Active() != 0 {
		t.Fatalf("expected no active jobs, got %d", h.pipeline.Active())
	}
}

func TestCloseBeforeEOFCancelsDirectJob(t *testing.T) {
	h := newHarness(t, modeSlowDirect)
	stream, err := h.pipeline.Open(context.Background(), transform.Request{Reference: youtube(t), FormatID: "22"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf := make([]byte, 5)
	if _, err := io.ReadFull(stream, buf); err != nil || string(buf) != "chunk" {
		t.Fatalf("unexpected first read %q (%v)", buf, err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	waitDone(t, stream.Job())
	if stream.Job().State() != transform.StateCancelled {
		t.Fatalf("expected cancelled, got %s", stream.Job().State())
	}
}

func TestDirectExitFailureSurfacesStderr(t *testing.T) {
	h := newHarness(t, modeFailDirect)
	stream, err := h.pipeline.Open(context.Background(), transform.Request{Reference: youtube(t), FormatID: "22"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()
	_, err = io.ReadAll(stream)
	var procErr *services.ProcessError
	if !errors.As(err, &procErr) || !strings.Contains(procErr.StderrTail, "boom") {
		t.Fatalf("expected process error with stderr tail, got %v", err)
	}
	waitDone(t, stream.Job())
	if stream.Job().State() != transform.StateFailed {
		t.Fatalf("expected failed, got %s", stream.Job().State())
	}
}

func TestFailedStepRemovesEveryTempFile(t *testing.T) {
	for _, step := range []string{"clip", "h264"} {
		t.Run(step, func(t *testing.T) {
			h := newHarnessFailingAt(t, modeNormal, step)
			stream, err := h.pipeline.Open(context.Background(), transform.Request{
				Reference: youtube(t),
				Quality:   "720p",
				Clip:      &transform.ClipRange{Start: 10, End: 70},
				Encoding:  transform.EncodingH264,
			})
			if stream != nil {
				stream.Close()
				t.Fatal("expected no stream for a failed step")
			}
			var procErr *services.ProcessError
			if !errors.Is(err, services.ErrProcessExit) || !errors.As(err, &procErr) {
				t.Fatalf("expected ffmpeg exit failure, got %v", err)
			}
			if procErr.Command != "ffmpeg" || !strings.Contains(procErr.StderrTail, "Invalid data") {
				t.Fatalf("unexpected process error %+v", procErr)
			}
			if extractor.Classify(err) != extractor.FailureNone {
				t.Fatal("ffmpeg failures must not be classified as extractor failures")
			}
			if files := h.tempFiles(t); len(files) != 0 {
				t.Fatalf("expected zero temp files, found %v", files)
			}
			if h.pipeline.Active() != 0 {
				t.Fatalf("expected no active jobs, got %d", h.pipeline.Active())
			}
		})
	}
}

func TestInvalidRequestsSpawnNoDownload(t *testing.T) {
	h := newHarness(t, modeNormal)
	cases := map[string]transform.Request{
		"clip past duration": {Reference: youtube(t), Quality: "720p", Clip: &transform.ClipRange{Start: 0, End: 300}},
		"inverted clip":      {Reference: youtube(t), Quality: "720p", Clip: &transform.ClipRange{Start: 10, End: 5}},
		"nan clip":           {Reference: youtube(t), FormatID: "22", Clip: &transform.ClipRange{Start: math.NaN(), End: math.NaN()}},
		"infinite clip":      {Reference: youtube(t), FormatID: "22", Clip: &transform.ClipRange{Start: 0, End: math.Inf(1)}},
		"unknown format":     {Reference: youtube(t), FormatID: "9999"},
		"no format":          {Reference: youtube(t)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := h.pipeline.Open(context.Background(), req); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if n := h.downloadCalls(t); n != 0 {
		t.Fatalf("expected no download invocations, got %d", n)
	}
	if files := h.tempFiles(t); len(files) != 0 {
		t.Fatalf("unexpected temp files %v", files)
	}
}

func TestSweepStaleRemovesOldLeftovers(t *testing.T) {
	h := newHarness(t, modeNormal)
	old := filepath.Join(h.tempDir, "vidfetch-old.master.mp4")
	fresh := filepath.Join(h.tempDir, "vidfetch-new.master.mp4")
	other := filepath.Join(h.tempDir, "keep.txt")
	for _, p := range []string{old, fresh, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	past := time.Now().Add(-2 * time.Hour)
	for _, p := range []string{old, other} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	if removed := h.pipeline.SweepStale(context.Background()); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("old leftover should be gone")
	}
	for _, p := range []string{fresh, other} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("%s should survive: %v", p, err)
		}
	}
}
