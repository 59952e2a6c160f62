// Package indexer runs the whole generation pipeline for one project: hook
// discovery and diagnostics, concurrent flattening of every model and service
// file, registry construction, the descriptor contract check, type resolution
// and both synthesis phases.
//
// Flattening is the only concurrent stage. Everything after it reads the
// registry, which is written once in source order and never mutated again
// except for each descriptor's own resolved types and declarations.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/fpm-git/gabagool/internal/config"
	"github.com/fpm-git/gabagool/internal/entity"
	"github.com/fpm-git/gabagool/internal/errors"
	"github.com/fpm-git/gabagool/internal/facts"
	"github.com/fpm-git/gabagool/internal/flatten"
	"github.com/fpm-git/gabagool/internal/logger"
	"github.com/fpm-git/gabagool/internal/policy"
	"github.com/fpm-git/gabagool/internal/project"
	"github.com/fpm-git/gabagool/internal/synth"
	"github.com/fpm-git/gabagool/internal/typeres"
	"github.com/fpm-git/gabagool/internal/validator"
)

// Indexer drives a generation run.
type Indexer struct {
	// Configuration, loaded from the project root when nil
	Config *config.Config

	// Log receives pipeline warnings; the "indexer" component logger when nil
	Log *zap.SugaredLogger

	// Progress prints one line per stage
	Progress bool

	// NoCache disables the descriptor cache regardless of configuration
	NoCache bool

	// Timing output (JSONL)
	Timing     bool
	TimingPath string

	// tables of the previous run, kept across runs of the same Indexer
	previous *facts.Tables
}

// StageTiming is the wall time of one pipeline stage.
type StageTiming struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// Result is everything a run produced.
type Result struct {
	Root        string
	Project     *project.Project
	Registry    *entity.Registry
	Diagnostics []policy.Diagnostic

	// Changed lists entities whose tables differ from the previous run; nil
	// when there was no previous run to compare with
	Changed []string
	Impact  []ImpactReport

	Written         []string
	JSConfigWritten bool

	Warnings  int
	CacheHits int
	Stages    []StageTiming

	synth *synth.Synthesizer
}

// Models and Services count the entities flattened from a module.exports
// object. Skipped entities are left out.
func (r *Result) Models() int {
	return countGenerated(r.Registry.Models())
}

func (r *Result) Services() int {
	return countGenerated(r.Registry.Services())
}

func countGenerated(ds []*entity.Descriptor) int {
	n := 0
	for _, d := range ds {
		if !d.Skipped {
			n++
		}
	}
	return n
}

// Tables returns the relational view of the run's registry.
func (r *Result) Tables() facts.Tables {
	return facts.BuildTables(r.Registry)
}

func New(cfg *config.Config) *Indexer {
	return &Indexer{Config: cfg}
}

// run carries per-invocation state between stages.
type run struct {
	idx      *Indexer
	ctx      context.Context
	root     string
	cfg      *config.Config
	log      *zap.SugaredLogger
	timing   *timeline
	result   *Result
	warnings atomic.Int64
}

func (r *run) stage(name, message string, fn func() error) error {
	if r.idx.Progress {
		logger.Stage(name, message)
	}
	start := time.Now()
	err := fn()
	duration := time.Since(start)
	r.timing.Stage(name, start, duration, err)
	r.result.Stages = append(r.result.Stages, StageTiming{Name: name, Duration: duration})
	return err
}

// Run analyzes the project at rootPath and writes the declaration tree.
func (idx *Indexer) Run(ctx context.Context, rootPath string) (*Result, error) {
	res, r, err := idx.analyze(ctx, rootPath)
	if err != nil {
		return nil, err
	}
	defer r.timing.Close()

	outDir := r.cfg.OutputDir(r.root)
	if err := r.stage("write", "Writing declarations to "+outDir, func() error {
		if err := synth.CheckOutputDir(r.root, outDir); err != nil {
			return err
		}
		written, err := res.synth.Write(outDir)
		res.Written = written
		return err
	}); err != nil {
		return nil, err
	}

	if r.cfg.Output.WriteJSConfig {
		rel, err := filepath.Rel(r.root, outDir)
		if err != nil {
			rel = outDir
		}
		wrote, err := synth.WriteJSConfig(r.root, filepath.ToSlash(rel))
		if err != nil {
			return nil, err
		}
		res.JSConfigWritten = wrote
		if wrote {
			r.log.Infow("Created jsconfig.json", logger.FieldOutput, filepath.Join(r.root, "jsconfig.json"))
		}
	}

	res.Warnings = int(r.warnings.Load())
	return res, nil
}

// Analyze runs every stage up to and including synthesis without touching
// the output directory.
func (idx *Indexer) Analyze(ctx context.Context, rootPath string) (*Result, error) {
	res, r, err := idx.analyze(ctx, rootPath)
	if err != nil {
		return nil, err
	}
	r.timing.Close()
	return res, nil
}

func (idx *Indexer) analyze(ctx context.Context, rootPath string) (*Result, *run, error) {
	runStart := time.Now()
	root, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "resolve project root %q", rootPath)
	}

	if idx.Config == nil {
		cfg, err := config.Load(root)
		if err != nil {
			return nil, nil, err
		}
		idx.Config = cfg
	}

	r := &run{
		idx:    idx,
		ctx:    ctx,
		root:   root,
		cfg:    idx.Config,
		result: &Result{Root: root},
	}
	r.log = r.countingLogger()
	r.timing = newTimeline(runStart, idx.resolveTimingPath(root))
	if err := r.timing.Err(); err != nil {
		r.log.Warnw("Timing output disabled", logger.FieldError, err)
	}

	if err := r.analyze(); err != nil {
		r.timing.Close()
		return nil, nil, err
	}
	r.result.Warnings = int(r.warnings.Load())
	return r.result, r, nil
}

// countingLogger wraps the indexer logger so that every warning emitted by
// any stage is counted for the run summary.
func (r *run) countingLogger() *zap.SugaredLogger {
	base := r.idx.Log
	if base == nil {
		base = logger.ComponentLogger("indexer")
	}
	return base.Desugar().WithOptions(zap.Hooks(func(e zapcore.Entry) error {
		if e.Level == zapcore.WarnLevel {
			r.warnings.Add(1)
		}
		return nil
	})).Sugar()
}

func (r *run) analyze() error {
	res := r.result

	if err := r.stage("discover", "Discovering project and hooks", func() error {
		p, err := project.Discover(r.root, r.cfg.Hooks.Enabled)
		res.Project = p
		return err
	}); err != nil {
		return err
	}

	if err := r.stage("diagnostics", "Checking hook configuration", r.diagnose); err != nil {
		return err
	}

	var sources []project.Source
	if err := r.stage("collect", "Collecting model and service files", func() error {
		var err error
		sources, err = res.Project.Collect(r.cfg)
		return err
	}); err != nil {
		return err
	}

	var descriptors []*entity.Descriptor
	if err := r.stage("flatten", fmt.Sprintf("Flattening %d files", len(sources)), func() error {
		var err error
		descriptors, err = r.flattenAll(sources)
		return err
	}); err != nil {
		return err
	}

	res.Registry = entity.NewRegistry()
	if err := r.stage("registry", "Building entity registry", func() error {
		for _, d := range descriptors {
			if err := res.Registry.Add(d); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := r.stage("validate", "Checking descriptor contract", func() error {
		v, err := validator.New()
		if err != nil {
			return err
		}
		return v.ValidateRegistry(res.Registry)
	}); err != nil {
		return err
	}

	if err := r.stage("resolve", "Resolving types", func() error {
		resolver := typeres.New(res.Registry, r.log.Named("typeres"))
		for _, d := range res.Registry.All() {
			if err := resolver.Resolve(d); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := r.stage("synthesize", "Synthesizing declarations", func() error {
		s := synth.New(res.Registry, r.log.Named("synth"))
		for _, d := range res.Registry.All() {
			s.Standalone(d)
		}
		for _, d := range res.Registry.All() {
			s.Linked(d)
		}
		res.synth = s
		return nil
	}); err != nil {
		return err
	}

	return r.stage("impact", "Comparing with previous run", r.compare)
}

// diagnose evaluates the hook policy. Non-fatal findings are logged and the
// run continues.
func (r *run) diagnose() error {
	engine, err := policy.New(r.ctx)
	if err != nil {
		return err
	}
	input, err := policy.BuildInput(r.result.Project, r.cfg.Hooks.SailsRange)
	if err != nil {
		return err
	}
	result, err := engine.Evaluate(r.ctx, input)
	if err != nil {
		return err
	}
	r.result.Diagnostics = result.Diagnostics

	if err := result.FatalError(); err != nil {
		return err
	}
	for _, diag := range result.Diagnostics {
		if diag.Severity == policy.SeverityError {
			r.log.Errorw(diag.Message, logger.FieldRule, diag.Rule, logger.FieldHook, diag.Subject)
		} else {
			r.log.Warnw(diag.Message, logger.FieldRule, diag.Rule, logger.FieldHook, diag.Subject)
		}
	}
	return nil
}

// flattenAll flattens sources concurrently and returns the descriptors in
// source order. The first failure cancels the remaining files.
func (r *run) flattenAll(sources []project.Source) ([]*entity.Descriptor, error) {
	var cache *descriptorCache
	if r.cfg.Analysis.Cache.Enabled && !r.idx.NoCache {
		cache = newDescriptorCache(r.cfg.CacheDir(r.root), flatten.Version)
		if err := cache.Load(); err != nil {
			r.log.Warnw("Descriptor cache unavailable", logger.FieldError, err)
			cache = nil
		}
	}

	workers := r.cfg.Parallelism()
	flatteners := make(chan *flatten.Flattener, workers)
	for i := 0; i < workers; i++ {
		flatteners <- flatten.New(r.log.Named("flatten"))
	}

	out := make([]*entity.Descriptor, len(sources))
	var hits atomic.Int64
	g, ctx := errgroup.WithContext(r.ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			fileStart := time.Now()
			content, err := os.ReadFile(src.Path)
			if err != nil {
				return errors.Wrapf(err, "reading %s file %q", src.Kind, src.Path)
			}
			contentHash := hashContent(content)
			if cache != nil {
				d, ok, err := cache.Get(src.Path, contentHash)
				if err != nil {
					r.log.Warnw("Cache read failed", logger.FieldFile, src.Path, logger.FieldError, err)
				} else if ok {
					d.Name, d.Filename, d.Kind, d.Owner = src.Name, src.Path, src.Kind, src.Owner
					out[i] = d
					hits.Add(1)
					r.timing.Source(src, "cache_hit", fileStart, time.Since(fileStart))
					return nil
				}
			}

			f := <-flatteners
			defer func() { flatteners <- f }()

			d := src.Descriptor()
			if err := f.Flatten(ctx, content, d); err != nil {
				r.timing.Source(src, "error", fileStart, time.Since(fileStart))
				return err
			}
			if cache != nil {
				if err := cache.Put(src.Path, contentHash, d); err != nil {
					r.log.Warnw("Cache write failed", logger.FieldFile, src.Path, logger.FieldError, err)
				}
			}
			out[i] = d
			r.timing.Source(src, "flattened", fileStart, time.Since(fileStart))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.Save(); err != nil {
			r.log.Warnw("Cache index write failed", logger.FieldError, err)
		}
	}
	r.result.CacheHits = int(hits.Load())
	return out, nil
}

// compare diffs this run's tables with the previous run's and computes the
// impact of every changed entity. The previous tables come from memory when
// the Indexer ran before, otherwise from the cache directory.
func (r *run) compare() error {
	tables := facts.BuildTables(r.result.Registry)

	cacheOn := r.cfg.Analysis.Cache.Enabled && !r.idx.NoCache
	previous := r.idx.previous
	if previous == nil && cacheOn {
		prev, ok, err := loadTablesSnapshot(r.cfg.CacheDir(r.root))
		if err != nil {
			r.log.Warnw("Previous descriptor tables unavailable", logger.FieldError, err)
		} else if ok {
			previous = &prev
		}
	}

	if previous != nil {
		delta := facts.ComputeDelta(*previous, tables)
		r.result.Changed = delta.ChangedEntities()
		if r.result.Changed == nil {
			r.result.Changed = []string{}
		}
		dependents := BuildDependents(r.result.Registry)
		for _, name := range r.result.Changed {
			r.result.Impact = append(r.result.Impact, ComputeImpact(name, dependents))
		}
	}

	r.idx.previous = &tables
	if cacheOn {
		if err := saveTablesSnapshot(r.cfg.CacheDir(r.root), tables); err != nil {
			r.log.Warnw("Descriptor tables snapshot not saved", logger.FieldError, err)
		}
	}
	return nil
}
