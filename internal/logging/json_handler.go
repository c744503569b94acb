package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"vidfetch/internal/services"
)

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceJSONAttr,
	})
}

// replaceJSONAttr shortens the built-in keys and expands external process
// failures so exit codes and stderr can be queried without parsing messages.
func replaceJSONAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "ts"
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339Nano))
		}
	case slog.LevelKey:
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	case "error":
		err, ok := attr.Value.Any().(error)
		if !ok {
			break
		}
		var procErr *services.ProcessError
		if !errors.As(err, &procErr) {
			attr.Value = slog.StringValue(err.Error())
			break
		}
		attr.Value = slog.GroupValue(
			slog.String("message", err.Error()),
			slog.String("command", procErr.Command),
			slog.Int("exit_code", procErr.ExitCode),
			slog.String("stderr", procErr.StderrTail),
		)
	}
	return attr
}
