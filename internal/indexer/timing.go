package indexer

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fpm-git/gabagool/internal/project"
)

// TimingEnv overrides the timing output path and enables recording.
const TimingEnv = "GABAGOOL_TIMING_JSONL"

// Timeline event names, written under the "event" key.
const (
	eventStage  = "stage"
	eventSource = "source"
	eventRun    = "run"
)

// timeline writes one JSON line per stage and per source file. Offsets are
// measured from the start of the run. A nil or disabled timeline drops
// everything.
type timeline struct {
	start time.Time
	file  *os.File
	log   *zap.Logger
	err   error
}

func newTimeline(start time.Time, path string) *timeline {
	tl := &timeline{start: start}
	if path == "" {
		return tl
	}
	f, err := os.Create(path)
	if err != nil {
		tl.err = err
		return tl
	}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		MessageKey: "event",
		LineEnding: zapcore.DefaultLineEnding,
	})
	tl.file = f
	tl.log = zap.New(zapcore.NewCore(enc, zapcore.Lock(f), zapcore.DebugLevel))
	return tl
}

func (tl *timeline) Enabled() bool {
	return tl != nil && tl.log != nil
}

func (tl *timeline) Err() error {
	if tl == nil {
		return nil
	}
	return tl.err
}

// Stage records one pipeline stage.
func (tl *timeline) Stage(phase string, start time.Time, took time.Duration, err error) {
	if !tl.Enabled() {
		return
	}
	tl.log.Info(eventStage,
		zap.String("phase", phase),
		zap.String("outcome", outcome(err)),
		zap.Float64("offset_ms", millis(start.Sub(tl.start))),
		zap.Float64("took_ms", millis(took)),
	)
}

// Source records the handling of one model or service file. result is
// "flattened", "cache_hit" or "error".
func (tl *timeline) Source(src project.Source, result string, start time.Time, took time.Duration) {
	if !tl.Enabled() {
		return
	}
	tl.log.Info(eventSource,
		zap.String("entity", src.Name),
		zap.String("kind", string(src.Kind)),
		zap.String("owner", src.Owner),
		zap.String("file", src.Path),
		zap.String("outcome", result),
		zap.Float64("offset_ms", millis(start.Sub(tl.start))),
		zap.Float64("took_ms", millis(took)),
	)
}

// Close writes the closing run event with the total elapsed time.
func (tl *timeline) Close() {
	if !tl.Enabled() {
		return
	}
	tl.log.Info(eventRun, zap.Float64("took_ms", millis(time.Since(tl.start))))
	_ = tl.log.Sync()
	_ = tl.file.Close()
	tl.log = nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func millis(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

// resolveTimingPath picks the JSONL destination: the environment first, then
// an explicit TimingPath, then <root>/timing.jsonl when timing is on.
func (idx *Indexer) resolveTimingPath(rootPath string) string {
	if envPath := os.Getenv(TimingEnv); envPath != "" {
		return envPath
	}
	if !idx.Timing && (idx.Config == nil || !idx.Config.Analysis.Timing) {
		return ""
	}
	if idx.TimingPath != "" {
		return idx.TimingPath
	}
	return filepath.Join(rootPath, "timing.jsonl")
}
