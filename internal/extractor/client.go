package extractor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"vidfetch/internal/deps"
	"vidfetch/internal/logging"
	"vidfetch/internal/metacache"
	"vidfetch/internal/runner"
	"vidfetch/internal/services"
)

// Options configures a Client.
type Options struct {
	Runner runner.Runner
	// Binary is the extractor executable; empty resolves yt-dlp through the
	// standard search order.
	Binary      string
	CookiesFile string
	// Env replaces the process environment for every extractor call.
	Env    []string
	Cache  *metacache.Cache[*Info]
	TTL    time.Duration
	Logger *slog.Logger
}

// Client fetches and caches extractor metadata, and builds the command lines
// the transform pipeline uses to download media.
type Client struct {
	runner  runner.Runner
	binary  string
	cookies string
	env     []string
	cache   *metacache.Cache[*Info]
	ttl     time.Duration
	logger  *slog.Logger
	group   singleflight.Group
}

// NewClient constructs a Client. A nil cache disables caching.
func NewClient(opts Options) *Client {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = deps.Resolve(deps.YtDlpCommand)
	}
	return &Client{
		runner:  opts.Runner,
		binary:  binary,
		cookies: strings.TrimSpace(opts.CookiesFile),
		env:     opts.Env,
		cache:   opts.Cache,
		ttl:     opts.TTL,
		logger:  logging.NewComponentLogger(opts.Logger, "extractor"),
	}
}

// FetchInfo returns the metadata document for ref, consulting the cache first.
// Concurrent misses for the same reference share one extractor run. The
// returned Info is shared with the cache and must be treated as read-only.
func (c *Client) FetchInfo(ctx context.Context, ref Reference) (*Info, error) {
	key := ref.CacheKey()
	if c.cache != nil {
		if info, ok := c.cache.Get(key); ok {
			c.log(ctx).Debug("metadata cache hit", logging.String("reference", ref.String()))
			return info, nil
		}
	}

	// The shared run is detached from any single caller so one disconnect does
	// not fail everyone waiting on the same key.
	ch := c.group.DoChan(key, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), ref)
	})
	select {
	case <-ctx.Done():
		return nil, services.Wrap(services.ErrCancelled, "extractor", "fetch info", ref.String(), ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Info), nil
	}
}

func (c *Client) fetch(ctx context.Context, ref Reference) (*Info, error) {
	logger := c.log(ctx)
	started := time.Now()
	result, err := c.runner.Run(ctx, c.InfoCommand(ref))
	if err != nil {
		err = FromExtractor(err)
		logger.Debug("metadata fetch failed",
			logging.String("reference", ref.String()),
			logging.String("failure", string(Classify(err))),
			logging.Error(err),
		)
		return nil, err
	}
	info, err := ParseInfo(result.Stdout)
	if err != nil {
		logging.WarnWithContext(logger, "extractor returned unusable metadata", "metadata_parse_failed",
			logging.String("reference", ref.String()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "update yt-dlp; the site may have changed"),
			logging.String(logging.FieldImpact, "video info unavailable"),
		)
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(ref.CacheKey(), info, c.ttl)
	}
	logger.Info("metadata fetched",
		logging.String("reference", ref.String()),
		logging.String("title", info.Title),
		logging.Int("formats", len(info.Formats)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return info, nil
}

// CacheStats reports metadata cache activity. A client without a cache
// returns zero stats.
func (c *Client) CacheStats() metacache.Stats {
	if c.cache == nil {
		return metacache.Stats{}
	}
	return c.cache.Stats()
}

// Runner exposes the process runner so the pipeline spawns through the same
// implementation.
func (c *Client) Runner() runner.Runner {
	return c.runner
}

// BaseArgs are the flags shared by every extractor invocation.
func (c *Client) BaseArgs() []string {
	args := []string{"--no-warnings", "--no-playlist"}
	if c.cookies != "" {
		args = append(args, "--cookies", c.cookies)
	}
	return args
}

// InfoCommand builds the metadata dump invocation.
func (c *Client) InfoCommand(ref Reference) runner.Command {
	args := append(c.BaseArgs(), "-j", ref.URL())
	return runner.Command{Name: c.binary, Args: args, Env: c.env}
}

// DownloadCommand builds a download invocation. dest "-" streams to stdout;
// merge adds --merge-output-format mp4 for file destinations.
func (c *Client) DownloadCommand(ref Reference, selector, dest string, merge bool) runner.Command {
	args := append(c.BaseArgs(), "-f", selector, "-o", dest)
	if merge {
		args = append(args, "--merge-output-format", "mp4")
	}
	args = append(args, ref.URL())
	return runner.Command{Name: c.binary, Args: args, Env: c.env}
}

func (c *Client) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, c.logger)
}
