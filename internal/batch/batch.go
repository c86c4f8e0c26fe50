// Package batch renders many diagram files concurrently, reusing the
// pipeline's validate, render and repair sequence and reporting progress
// per file.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"mermaidlive/internal/diagram"
	"mermaidlive/internal/pipeline"
	"mermaidlive/internal/trace"
)

// Factory creates the attempter owned by one worker and a release func
// called when the run ends.
type Factory func() (att pipeline.Attempter, release func() error, err error)

// Options configures Render.
type Options struct {
	Jobs   int
	Theme  diagram.Theme
	OutDir string
	// DryRun skips writing SVG files.
	DryRun  bool
	Factory Factory
	Cache   pipeline.Cache
	Sink    ProgressSink
	// Tracer defaults to the tracer carried by the context.
	Tracer trace.Tracer
}

// Render processes files with up to opts.Jobs workers. Per-file failures
// are reported in the results; the error is non-nil only when the run
// itself could not proceed.
func Render(ctx context.Context, files []string, opts Options) ([]Result, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if opts.Factory == nil {
		return nil, errors.New("batch: no attempter factory")
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = 1
	}
	jobs = min(jobs, len(files))
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}

	workers := make(chan pipeline.Attempter, jobs)
	var releases []func() error
	defer func() {
		for _, release := range releases {
			if release != nil {
				_ = release()
			}
		}
	}()
	for i := 0; i < jobs; i++ {
		att, release, err := opts.Factory()
		if err != nil {
			return nil, fmt.Errorf("start worker %d: %w", i, err)
		}
		releases = append(releases, release)
		workers <- att
	}

	emit := func(ev Event) {
		if opts.Sink != nil {
			opts.Sink.OnEvent(ev)
		}
	}
	for _, file := range files {
		emit(Event{File: file, Status: StatusQueued})
	}

	span := trace.Begin(tracer, trace.ScopeSession, "batch", 0).
		WithExtra("files", fmt.Sprint(len(files))).
		WithExtra("jobs", fmt.Sprint(jobs))

	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			att := <-workers
			defer func() { workers <- att }()
			results[i] = renderFile(gctx, att, path, opts, emit)
			return nil
		})
	}
	err := g.Wait()
	span.End(fmt.Sprintf("%+v", Summarize(results)))
	return results, err
}

func renderFile(ctx context.Context, att pipeline.Attempter, path string, opts Options, emit func(Event)) Result {
	start := time.Now()
	res := Result{File: path}
	fail := func(stage Stage, err error) Result {
		res.Err = err
		emit(Event{File: path, Stage: stage, Status: StatusError, Err: err, Elapsed: time.Since(start)})
		return res
	}

	emit(Event{File: path, Stage: StageRead, Status: StatusWorking})
	data, err := os.ReadFile(path)
	if err != nil {
		return fail(StageRead, err)
	}
	in := diagram.Input{Text: string(data), Theme: opts.Theme}

	step := func(next pipeline.Phase) bool {
		if stage, ok := stageFor(next); ok {
			emit(Event{File: path, Stage: stage, Status: StatusWorking, Elapsed: time.Since(start)})
		}
		return ctx.Err() == nil
	}
	out, ok := pipeline.Run(ctx, att, opts.Cache, in, step)
	if !ok {
		return fail(StageRender, ctx.Err())
	}
	res.Outcome = out
	if out.Status != diagram.StatusSuccess {
		emit(Event{File: path, Stage: StageRender, Status: StatusError, Err: errors.New(out.Message()), Elapsed: time.Since(start)})
		return res
	}
	pipeline.Remember(opts.Cache, in, out)

	if !opts.DryRun {
		emit(Event{File: path, Stage: StageWrite, Status: StatusWorking, Elapsed: time.Since(start)})
		res.Out = OutputPath(path, opts.OutDir)
		if err := writeFile(res.Out, out.Artifact.SVG); err != nil {
			return fail(StageWrite, err)
		}
	}
	emit(Event{File: path, Stage: StageWrite, Status: StatusDone, Elapsed: time.Since(start)})
	return res
}

func stageFor(p pipeline.Phase) (Stage, bool) {
	switch p {
	case pipeline.PhaseValidating:
		return StageValidate, true
	case pipeline.PhaseRenderingOriginal:
		return StageRender, true
	case pipeline.PhaseRenderingRepaired:
		return StageRepair, true
	}
	return "", false
}

// OutputPath returns the SVG path for a diagram file: the same name with an
// .svg extension, inside outDir when set.
func OutputPath(path, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".svg"
	if outDir == "" {
		return filepath.Join(filepath.Dir(path), base)
	}
	return filepath.Join(outDir, base)
}

func writeFile(path, svg string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(svg), 0o644)
}
