package pool_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	garena "github.com/blong14/pilot/internal/arena"
	"github.com/blong14/pilot/internal/lexer"
	glimiter "github.com/blong14/pilot/internal/limiter"
	gpool "github.com/blong14/pilot/internal/pool"
)

func newPool(t *testing.T, workers, arenaSize int, opts ...lexer.Option) *gpool.WorkPool {
	t.Helper()
	p, err := gpool.New(gpool.Config{
		Workers: workers,
		Region:  gpool.HeapRegion(arenaSize),
		Limiter: glimiter.PerSecond(0),
		Options: opts,
	})
	require.NoError(t, err)
	return p
}

func TestWorkPool_RunKeepsOrder(t *testing.T) {
	jobs := make([]gpool.Job, 0, 50)
	for i := 0; i < 50; i++ {
		jobs = append(jobs, gpool.Job{
			Name:   fmt.Sprintf("job-%d.scm", i),
			Source: []byte(fmt.Sprintf("(define x%d %d)", i, i)),
		})
	}
	results, err := newPool(t, 4, 4096).Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, len(jobs))
	for i, r := range results {
		assert.Equal(t, jobs[i].Name, r.Job.Name)
		require.Len(t, r.Tokens, 5)
		assert.Equal(t, fmt.Sprintf("x%d", i), r.Tokens[2].Text)
		assert.Equal(t, fmt.Sprintf("%d", i), r.Tokens[3].Text)
		assert.Greater(t, r.ArenaUsed, 0)
		assert.GreaterOrEqual(t, r.ArenaPeak, r.ArenaUsed)
	}
}

func TestWorkPool_ArenaPeak(t *testing.T) {
	jobs := []gpool.Job{
		{Name: "big.scm", Source: []byte("(define a-rather-long-name 1234567)")},
		{Name: "small.scm", Source: []byte("a")},
	}
	results, err := newPool(t, 1, 4096).Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Greater(t, results[0].ArenaUsed, results[1].ArenaUsed)
	assert.Equal(t, results[0].ArenaUsed, results[0].ArenaPeak)
	assert.Equal(t, results[0].ArenaPeak, results[1].ArenaPeak)
}

func TestWorkPool_LimiterFromEnv(t *testing.T) {
	t.Setenv("PILOT_RATE", "0")
	t.Setenv("PILOT_RATE_MINUTE", "1")
	p, err := gpool.New(gpool.Config{Workers: 1, Region: gpool.HeapRegion(1024)})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	jobs := []gpool.Job{
		{Name: "first.scm", Source: []byte("(a)")},
		{Name: "second.scm", Source: []byte("(b)")},
	}
	results, err := p.Run(ctx, jobs)
	require.Error(t, err)
	assert.NoError(t, results[0].Err)
	assert.Len(t, results[0].Tokens, 3)
	assert.Error(t, results[1].Err)
	assert.Contains(t, err.Error(), "second.scm")
}

func TestWorkPool_RunAggregatesErrors(t *testing.T) {
	jobs := []gpool.Job{
		{Name: "ok.scm", Source: []byte("(car xs)")},
		{Name: "string.scm", Source: []byte(`(do "hi")`)},
		{Name: "huge.scm", Source: []byte("(an-identifier-longer-than-the-arena)")},
	}
	results, err := newPool(t, 2, 16).Run(context.Background(), jobs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lexer.ErrUnclassifiedCharacter))
	assert.True(t, errors.Is(err, garena.ErrOutOfMemory))
	assert.Contains(t, err.Error(), "string.scm")
	assert.Contains(t, err.Error(), "huge.scm")

	assert.NoError(t, results[0].Err)
	assert.Len(t, results[0].Tokens, 4)
	assert.Len(t, results[1].Tokens, 2)
}

func TestWorkPool_RunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	jobs := []gpool.Job{
		{Name: "a.scm", Source: []byte("(a)")},
		{Name: "b.scm", Source: []byte("(b)")},
	}
	results, err := newPool(t, 1, 4096).Run(ctx, jobs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, results, 2)
}

func TestWorkPool_RegionFailure(t *testing.T) {
	p, err := gpool.New(gpool.Config{
		Workers: 2,
		Region: func(int) ([]byte, func() error, error) {
			return nil, nil, errors.New("no memory for you")
		},
		Limiter: glimiter.PerSecond(0),
	})
	require.NoError(t, err)
	_, err = p.Run(context.Background(), []gpool.Job{{Name: "a.scm", Source: []byte("a")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no memory for you")
}

func TestWorkPool_ReleasesRegions(t *testing.T) {
	released := make(chan int, 3)
	p, err := gpool.New(gpool.Config{
		Workers: 3,
		Region: func(worker int) ([]byte, func() error, error) {
			return make([]byte, 1024), func() error {
				released <- worker
				return nil
			}, nil
		},
		Limiter: glimiter.PerSecond(0),
		Options: []lexer.Option{lexer.WithQuote(false)},
	})
	require.NoError(t, err)
	jobs := []gpool.Job{
		{Name: "a.scm", Source: []byte("(a)")},
		{Name: "b.scm", Source: []byte("(b)")},
		{Name: "c.scm", Source: []byte("'c")},
	}
	_, err = p.Run(context.Background(), jobs)
	assert.True(t, errors.Is(err, lexer.ErrUnclassifiedCharacter))
	assert.Len(t, released, 3)
}

func TestWorkPool_Empty(t *testing.T) {
	results, err := newPool(t, 2, 1024).Run(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, results)
}
