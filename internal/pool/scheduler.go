package pool

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	garena "github.com/blong14/pilot/internal/arena"
	genv "github.com/blong14/pilot/internal/environment"
	gerrors "github.com/blong14/pilot/internal/errors"
	"github.com/blong14/pilot/internal/lexer"
	glimiter "github.com/blong14/pilot/internal/limiter"
	glog "github.com/blong14/pilot/internal/logging"
	gtrace "github.com/blong14/pilot/internal/tracing"
)

// Job is one source to tokenize.
type Job struct {
	Name   string
	Source []byte
}

type Result struct {
	Job    Job
	Tokens []lexer.Token
	Err    error
	// ArenaUsed is how much of the worker's arena the job consumed.
	ArenaUsed int
	// ArenaPeak is the most of the worker's arena any of its jobs so far
	// has consumed.
	ArenaPeak int
}

// RegionFunc supplies the arena backing memory of a worker. release, when
// not nil, is called once the worker exits.
type RegionFunc func(worker int) (region []byte, release func() error, err error)

// HeapRegion gives every worker size bytes of Go heap.
func HeapRegion(size int) RegionFunc {
	return func(int) ([]byte, func() error, error) {
		return make([]byte, size), nil, nil
	}
}

type Config struct {
	Workers int
	Region  RegionFunc
	Limiter glimiter.RateLimiter
	Options []lexer.Option
}

type task struct {
	idx int
	job Job
}

// Worker owns a private arena; lexers never share memory across workers.
type Worker struct {
	id      string
	arena   *garena.Arena
	inbox   <-chan task
	limiter glimiter.RateLimiter
	tracer  trace.Tracer
	opts    []lexer.Option
}

func (w *Worker) Start(ctx context.Context, results []Result) {
	glog.Track("%s starting", w.id)
	defer glog.Track("%s stopped", w.id)
	for {
		select {
		case <-ctx.Done():
			glog.Track("%s ctx canceled", w.id)
			return
		case t, ok := <-w.inbox:
			if !ok {
				return
			}
			results[t.idx] = w.execute(ctx, t.job)
		}
	}
}

func (w *Worker) execute(ctx context.Context, job Job) Result {
	if err := w.limiter.Wait(ctx); err != nil {
		return Result{Job: job, Err: err}
	}
	_, span := gtrace.Start(
		ctx, w.tracer, "tokenize",
		attribute.String("source", job.Name),
		attribute.String("worker", w.id),
	)
	defer span.End()

	w.arena.Reset()
	glog.Track("%s tokenizing %s bytes=%d", w.id, job.Name, len(job.Source))
	tokens, err := lexer.Tokenize(w.arena, job.Source, w.opts...)
	span.SetAttributes(
		attribute.Int("tokens", len(tokens)),
		attribute.Int("arena.used", w.arena.Len()),
	)
	if err != nil {
		span.RecordError(err)
	}
	glog.Track(
		"%s tokenized %s tokens=%d arena used=%d peak=%d cap=%d",
		w.id, job.Name, len(tokens), w.arena.Len(), w.arena.Peak(), w.arena.Cap(),
	)
	return Result{
		Job:       job,
		Tokens:    tokens,
		Err:       err,
		ArenaUsed: w.arena.Len(),
		ArenaPeak: w.arena.Peak(),
	}
}

type WorkPool struct {
	cfg Config
}

// New fills the zero fields of cfg from the environment.
func New(cfg Config) (*WorkPool, error) {
	if cfg.Workers <= 0 {
		n, err := genv.Workers()
		if err != nil {
			return nil, err
		}
		cfg.Workers = n
	}
	if cfg.Region == nil {
		size, err := genv.ArenaSize()
		if err != nil {
			return nil, err
		}
		cfg.Region = HeapRegion(size)
	}
	if cfg.Limiter == nil {
		perSecond, err := genv.Rate()
		if err != nil {
			return nil, err
		}
		perMinute, err := genv.RatePerMinute()
		if err != nil {
			return nil, err
		}
		cfg.Limiter = glimiter.New(perSecond, perMinute)
	}
	return &WorkPool{cfg: cfg}, nil
}

// Run tokenizes every job and returns the results in job order. The error
// aggregates the failure of each job, prefixed by the job name.
func (s *WorkPool) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	defer glog.TraceStart(fmt.Sprintf("pool run jobs=%d", len(jobs)))()

	workers := s.cfg.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	results := make([]Result, len(jobs))
	inbox := make(chan task)
	tracer := gtrace.Tracer("github.com/blong14/pilot/internal/pool")

	var errs *gerrors.Error
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		region, release, err := s.cfg.Region(i)
		if err != nil {
			errs = gerrors.Append(errs, fmt.Errorf("worker %d region: %w", i, err))
			continue
		}
		w := &Worker{
			id:      fmt.Sprintf("worker::%d", i),
			arena:   garena.New(region),
			inbox:   inbox,
			limiter: s.cfg.Limiter,
			tracer:  tracer,
			opts:    s.cfg.Options,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Start(ctx, results)
			if release != nil {
				if err := release(); err != nil {
					glog.Track("%s release: %s", w.id, err)
				}
			}
		}()
	}
	if errs.Len() == workers && len(jobs) > 0 {
		return results, errs.ErrorOrNil()
	}

	for idx, job := range jobs {
		select {
		case <-ctx.Done():
			results[idx] = Result{Job: job, Err: ctx.Err()}
			continue
		case inbox <- task{idx: idx, job: job}:
		}
	}
	close(inbox)
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			errs = gerrors.Append(errs, fmt.Errorf("%s: %w", r.Job.Name, r.Err))
		}
	}
	return results, errs.ErrorOrNil()
}
