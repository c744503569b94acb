package transform

import (
	"errors"
	"io"
	"sync"

	"vidfetch/internal/extractor"
	"vidfetch/internal/runner"
	"vidfetch/internal/services"
)

// Stream delivers a job's output. Reading to EOF completes the job; closing
// before EOF cancels it. File-backed output is deleted as soon as the read
// reaches EOF.
type Stream struct {
	job      *Job
	body     io.ReadCloser
	proc     *runner.Process
	file     string
	size     int64
	filename string

	closeOnce sync.Once
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	if s.job.State() == StateCompleted {
		return 0, io.EOF
	}
	if err := s.job.ctx.Err(); err != nil {
		s.job.Cancel()
		return 0, s.job.terminalErr()
	}
	n, err := s.body.Read(p)
	s.job.bytes.Add(int64(n))
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		return n, s.finishEOF()
	default:
		if s.job.ctx.Err() != nil {
			s.job.Cancel()
			return n, s.job.terminalErr()
		}
		wrapped := services.Wrap(services.ErrProcessExit, "transform", "stream", "read failed", err)
		s.job.fail(wrapped)
		return n, wrapped
	}
}

// finishEOF settles the job once the body is exhausted. For a direct stream
// the extractor's exit status decides the outcome.
func (s *Stream) finishEOF() error {
	if s.proc != nil {
		if err := s.proc.Wait(); err != nil {
			err = extractor.FromExtractor(err)
			s.job.fail(err)
			return err
		}
	} else {
		_ = s.body.Close()
		s.job.release(s.file)
	}
	s.job.complete()
	return io.EOF
}

// Close releases the stream. It cancels the job unless the job already
// finished, and is idempotent.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		_ = s.body.Close()
		s.job.Cancel()
	})
	return nil
}

// Job returns the underlying transform job.
func (s *Stream) Job() *Job { return s.job }

// Filename is the suggested attachment name.
func (s *Stream) Filename() string { return s.filename }

// ContentType is the media type of the stream.
func (s *Stream) ContentType() string { return ContentType }

// Size is the output length in bytes, or -1 when streaming straight from the
// extractor.
func (s *Stream) Size() int64 { return s.size }
