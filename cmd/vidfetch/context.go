package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"vidfetch/internal/captions"
	"vidfetch/internal/config"
	"vidfetch/internal/deps"
	"vidfetch/internal/extractor"
	"vidfetch/internal/logging"
	"vidfetch/internal/metacache"
	"vidfetch/internal/runner"
	"vidfetch/internal/transform"
)

// dotenvPath is read before the configuration so env fallbacks can live there.
const dotenvPath = ".env"

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.configErr = fmt.Errorf("load %s: %w", dotenvPath, err)
			return
		}
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// toolkit bundles the collaborators most commands share.
type toolkit struct {
	cfg       *config.Config
	logger    *slog.Logger
	runner    *runner.Exec
	cache     *metacache.Cache[*extractor.Info]
	extractor *extractor.Client
}

func (c *commandContext) toolkit() (*toolkit, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	exec := runner.NewExec(logger)
	cache := metacache.New[*extractor.Info](metacache.Options{
		Name:          "metadata",
		TTL:           cfg.CacheTTL(),
		SweepInterval: cfg.CacheSweepInterval(),
		Logger:        logger,
	})
	home, _ := os.UserHomeDir()
	client := extractor.NewClient(extractor.Options{
		Runner:      exec,
		Binary:      cfg.YtDlpBinary(),
		CookiesFile: cfg.Extractor.CookiesFile,
		Env:         deps.ExtractorEnv(os.Environ(), home),
		Cache:       cache,
		TTL:         cfg.CacheTTL(),
		Logger:      logger,
	})
	return &toolkit{cfg: cfg, logger: logger, runner: exec, cache: cache, extractor: client}, nil
}

func (s *toolkit) pipeline(recorder transform.Recorder) (*transform.Pipeline, error) {
	return transform.New(transform.Options{
		Extractor: s.extractor,
		Runner:    s.runner,
		FFmpeg:    s.cfg.FFmpegBinary(),
		TempDir:   s.cfg.Paths.TempDir,
		History:   recorder,
		Logger:    s.logger,
	})
}

func (s *toolkit) captions() *captions.Chain {
	return captions.NewChain(captions.Options{
		Runner:         s.runner,
		FFmpeg:         s.cfg.FFmpegBinary(),
		FFprobe:        s.cfg.FFprobeBinary(),
		Whisper:        s.cfg.WhisperBinary(),
		WhisperModel:   s.cfg.Captions.WhisperModel,
		SpeechLanguage: s.cfg.Captions.SpeechLanguage,
		TempRoot:       s.cfg.Paths.TempDir,
		Logger:         s.logger,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
