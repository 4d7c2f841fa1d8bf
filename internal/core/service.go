package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/postclean/internal/logging"
)

// Default paths used when a run is started without explicit options.
const (
	DefaultInputPath  = "data/Gymnastics_tweets.csv"
	DefaultOutputPath = "data/cleaned_gymnastics_tweets.csv"
)

// RunOptions names the files a batch run reads and writes.
type RunOptions struct {
	InputPath  string
	OutputPath string
}

// DefaultRunOptions returns the stock input and output paths.
func DefaultRunOptions() RunOptions {
	return RunOptions{InputPath: DefaultInputPath, OutputPath: DefaultOutputPath}
}

func (o RunOptions) withDefaults() RunOptions {
	if o.InputPath == "" {
		o.InputPath = DefaultInputPath
	}
	if o.OutputPath == "" {
		o.OutputPath = DefaultOutputPath
	}
	return o
}

// RunResult describes a finished clean.
type RunResult struct {
	RunID      uuid.UUID
	InputPath  string
	OutputPath string
	Rows       int
	Stats      CleanStats
	BytesRead  int64
	StartedAt  time.Time
	Duration   time.Duration

	// ReplacedBytes counts invalid UTF-8 input bytes rewritten to '?'.
	ReplacedBytes int64
}

// Sink persists a cleaned table after it has been written to disk.
type Sink interface {
	SaveRun(ctx context.Context, run *RunResult, t *Table) error
}

// Observer is notified once per run, successful or not.
type Observer interface {
	ObserveRun(run *RunResult, err error)
}

// Service runs the load, clean, save pipeline.
type Service struct {
	cleaner  *Cleaner
	sink     Sink
	observer Observer
	limiter  *Limiter
}

// Option configures a Service.
type Option func(*Service)

// WithSink persists every successful batch run to sink.
func WithSink(sink Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithObserver reports every run, including failed ones, to o.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithLimiter bounds concurrent CleanStream calls.
func WithLimiter(l *Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

// NewService creates a Service using the given entity parser.
func NewService(parser EntityParser, opts ...Option) (*Service, error) {
	cleaner, err := NewCleaner(parser)
	if err != nil {
		return nil, err
	}
	s := &Service{cleaner: cleaner}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Limiter returns the configured limiter, or nil.
func (s *Service) Limiter() *Limiter {
	return s.limiter
}

// Run cleans opts.InputPath and writes the result to opts.OutputPath.
// The output file is untouched unless every stage succeeds.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	opts = opts.withDefaults()
	run := &RunResult{
		RunID:      uuid.New(),
		InputPath:  opts.InputPath,
		OutputPath: opts.OutputPath,
		StartedAt:  time.Now(),
	}
	ctx = logging.WithRunID(ctx, run.RunID.String())
	logger := logging.WithFields(ctx, "input", opts.InputPath, "output", opts.OutputPath)
	logger.Info("clean started")

	err := s.run(ctx, run)
	run.Duration = time.Since(run.StartedAt)
	s.observe(run, err)

	if err != nil {
		logger.Error("clean failed", "error", err, "duration", run.Duration)
		return run, err
	}
	warnReplaced(logger, run)
	logger.Info("clean completed",
		"rows", run.Rows,
		"bytes_read", run.BytesRead,
		"replaced_bytes", run.ReplacedBytes,
		"hashtag_fallbacks", run.Stats.HashtagFallbacks,
		"mention_fallbacks", run.Stats.MentionFallbacks,
		"duration", run.Duration,
	)
	return run, nil
}

func (s *Service) run(ctx context.Context, run *RunResult) error {
	t, in, err := loadTable(run.InputPath)
	run.BytesRead = in.BytesRead
	run.ReplacedBytes = in.ReplacedBytes()
	if err != nil {
		return err
	}

	stats, err := s.cleaner.Clean(ctx, t)
	run.Stats = stats
	if err != nil {
		return err
	}
	run.Rows = t.Len()

	if err := SaveTable(run.OutputPath, t); err != nil {
		return fmt.Errorf("save %s: %w", run.OutputPath, err)
	}

	if s.sink != nil {
		if err := s.sink.SaveRun(ctx, run, t); err != nil {
			return fmt.Errorf("persist run: %w", err)
		}
	}
	return nil
}

// CleanStream reads CSV from r, cleans it and writes the result to w.
// Nothing is written to w unless the clean succeeds. When the Service has a
// limiter, a slot is held for the duration of the call.
func (s *Service) CleanStream(ctx context.Context, r io.Reader, w io.Writer) (*RunResult, error) {
	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer s.limiter.Release()
	}

	run := &RunResult{RunID: uuid.New(), StartedAt: time.Now()}
	ctx = logging.WithRunID(ctx, run.RunID.String())

	err := s.cleanStream(ctx, run, r, w)
	run.Duration = time.Since(run.StartedAt)
	s.observe(run, err)

	logger := logging.FromContext(ctx)
	if err != nil {
		logger.Warn("stream clean failed", "error", err)
		return run, err
	}
	warnReplaced(logger, run)
	logger.Info("stream clean completed",
		slog.Int("rows", run.Rows),
		slog.Int64("bytes_read", run.BytesRead),
		slog.Int64("replaced_bytes", run.ReplacedBytes),
		slog.Duration("duration", run.Duration),
	)
	return run, nil
}

func (s *Service) cleanStream(ctx context.Context, run *RunResult, r io.Reader, w io.Writer) error {
	in := WrapInput(r)
	t, err := ReadTable(in)
	run.BytesRead = in.BytesRead
	run.ReplacedBytes = in.ReplacedBytes()
	if err != nil {
		return err
	}

	stats, err := s.cleaner.Clean(ctx, t)
	run.Stats = stats
	if err != nil {
		return err
	}
	run.Rows = t.Len()
	return WriteTable(w, t)
}

// warnReplaced flags runs whose text was altered by UTF-8 sanitizing.
func warnReplaced(logger *slog.Logger, run *RunResult) {
	if run.ReplacedBytes > 0 {
		logger.Warn("input contained invalid UTF-8, bytes replaced with '?'",
			"replaced_bytes", run.ReplacedBytes)
	}
}

func (s *Service) observe(run *RunResult, err error) {
	if s.observer != nil {
		s.observer.ObserveRun(run, err)
	}
}
