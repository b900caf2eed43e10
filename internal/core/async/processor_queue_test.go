package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-ocr/internal/entity"
)

type recordingRunner struct {
	mu    sync.Mutex
	paths []string
	fail  map[string]bool
	delay time.Duration
}

func (r *recordingRunner) ProcessImage(ctx context.Context, path string) (entity.ExtractionResult, error) {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return entity.ErrorResult(path, time.Now(), ctx.Err()), nil
		}
	}
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	if r.fail[path] {
		return entity.ExtractionResult{FilePath: path}, errors.New("sink down")
	}
	return entity.ExtractionResult{FilePath: path}, nil
}

func TestQueueProcessesEveryJob(t *testing.T) {
	runner := &recordingRunner{fail: map[string]bool{"b.png": true}}
	var (
		mu     sync.Mutex
		failed []string
	)
	q := NewProcessorQueue(context.Background(), runner, nil,
		WithWorkers(3),
		WithQueueSize(2),
		WithResultFunc(func(job Job, _ entity.ExtractionResult, err error) {
			if err != nil {
				mu.Lock()
				failed = append(failed, job.Path)
				mu.Unlock()
			}
		}),
	)

	for _, p := range []string{"a.png", "b.png", "c.png", "d.png", "e.png"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p}))
	}
	q.Shutdown(context.Background())

	assert.ElementsMatch(t, []string{"a.png", "b.png", "c.png", "d.png", "e.png"}, runner.paths)
	assert.Equal(t, []string{"b.png"}, failed)
}

func TestQueueRejectsAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(context.Background(), &recordingRunner{}, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{Path: "late.png"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueueJobTimeout(t *testing.T) {
	runner := &recordingRunner{delay: time.Second}
	var got entity.ExtractionResult
	q := NewProcessorQueue(context.Background(), runner, nil,
		WithProcessTimeout(10*time.Millisecond),
		WithResultFunc(func(_ Job, res entity.ExtractionResult, _ error) { got = res }),
	)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow.png"}))
	q.Shutdown(context.Background())

	assert.Contains(t, got.Error, "deadline")
	assert.Empty(t, runner.paths)
}
