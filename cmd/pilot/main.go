package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"go.opentelemetry.io/otel"

	genv "github.com/blong14/pilot/internal/environment"
	gerrors "github.com/blong14/pilot/internal/errors"
	"github.com/blong14/pilot/internal/lexer"
	glimiter "github.com/blong14/pilot/internal/limiter"
	glog "github.com/blong14/pilot/internal/logging"
	gpool "github.com/blong14/pilot/internal/pool"
	gtrace "github.com/blong14/pilot/internal/tracing"
)

const usage = `usage: pilot [flags] [file ...]

Tokenizes Pilot Scheme sources and prints one token per line. Reads stdin
when no file is given.

flags:
`

type options struct {
	arena      string
	workers    int
	rate       int
	rateMinute int
	quote      bool
	dump       bool
	mmap       string
	anon       bool
	pin        bool
	expr       string
}

func parseFlags(fs *flag.FlagSet, args []string) (*options, error) {
	o := &options{}
	fs.StringVar(&o.arena, "arena", "", "arena size per worker, e.g. 64KiB (default $PILOT_ARENA_SIZE or 1MiB)")
	fs.IntVar(&o.workers, "workers", 0, "number of workers (default $PILOT_WORKERS or the number of CPUs)")
	fs.IntVar(&o.rate, "rate", -1, "sources tokenized per second, 0 for unlimited (default $PILOT_RATE)")
	fs.IntVar(&o.rateMinute, "rate-minute", -1, "sources tokenized per minute, 0 for unlimited (default $PILOT_RATE_MINUTE)")
	fs.BoolVar(&o.quote, "quote", true, "lex ' as a quote token")
	fs.BoolVar(&o.dump, "dump", false, "dump full results instead of the token listing")
	fs.StringVar(&o.mmap, "mmap", "", "directory of file backed worker arenas")
	fs.BoolVar(&o.anon, "anon", false, "back worker arenas with anonymous mappings instead of the heap")
	fs.BoolVar(&o.pin, "pin", false, "lock mapped worker arenas in RAM, implies -anon without -mmap")
	fs.StringVar(&o.expr, "e", "", "tokenize this expression instead of files")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	return o, fs.Parse(args)
}

func readJobs(o *options, stdin io.Reader, args []string) ([]gpool.Job, error) {
	if o.expr != "" {
		return []gpool.Job{{Name: "-e", Source: []byte(o.expr)}}, nil
	}
	if len(args) == 0 {
		src, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		return []gpool.Job{{Name: "<stdin>", Source: src}}, nil
	}
	jobs := make([]gpool.Job, 0, len(args))
	var errs *gerrors.Error
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			errs = gerrors.Append(errs, err)
			continue
		}
		jobs = append(jobs, gpool.Job{Name: path, Source: src})
	}
	return jobs, errs.ErrorOrNil()
}

func newPool(o *options) (*gpool.WorkPool, error) {
	var size int
	var err error
	if o.arena != "" {
		size, err = genv.ParseSize(o.arena)
	} else {
		size, err = genv.ArenaSize()
	}
	if err != nil {
		return nil, fmt.Errorf("arena size: %w", err)
	}
	cfg := gpool.Config{
		Workers: o.workers,
		Region:  gpool.HeapRegion(size),
		Options: []lexer.Option{lexer.WithQuote(o.quote)},
	}
	if o.mmap != "" || o.anon || o.pin {
		cfg.Region = mappedRegion(o.mmap, size, o.pin)
	}
	if o.rate >= 0 || o.rateMinute >= 0 {
		perSecond, perMinute := o.rate, o.rateMinute
		if perSecond < 0 {
			if perSecond, err = genv.Rate(); err != nil {
				return nil, err
			}
		}
		if perMinute < 0 {
			if perMinute, err = genv.RatePerMinute(); err != nil {
				return nil, err
			}
		}
		cfg.Limiter = glimiter.New(perSecond, perMinute)
	}
	return gpool.New(cfg)
}

// printResults writes the token listing of every result, one token a line.
// Several results get a header naming their source.
func printResults(w io.Writer, results []gpool.Result) error {
	out := bufio.NewWriter(w)
	for i, r := range results {
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "==> %s <==\n", r.Job.Name)
		}
		for _, tok := range r.Tokens {
			fmt.Fprintln(out, tok)
		}
	}
	return out.Flush()
}

func run(ctx context.Context, o *options, stdin io.Reader, stdout io.Writer, args []string) error {
	if genv.TraceEnabled() {
		tp, err := gtrace.Provider(genv.JaegerEndpoint())
		if err != nil {
			return err
		}
		otel.SetTracerProvider(tp)
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Println(err)
			}
		}()
	}

	jobs, err := readJobs(o, stdin, args)
	if err != nil {
		return err
	}
	p, err := newPool(o)
	if err != nil {
		return err
	}
	results, runErr := p.Run(ctx, jobs)
	if o.dump {
		spew.Fdump(stdout, results)
		return runErr
	}
	if err = printResults(stdout, results); err != nil {
		return gerrors.Append(runErr, err).ErrorOrNil()
	}
	return runErr
}

func main() {
	o, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	glog.Track("pilot starting with %+v", *o)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, o, os.Stdin, os.Stdout, flag.Args())
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pilot: %s\n", err)
		os.Exit(1)
	}
}
