package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	mu         sync.Mutex
	processed  []string
	unfinished []string
}

func (p *fakeProcessor) ProcessBatch(_ context.Context, id string) error {
	p.mu.Lock()
	p.processed = append(p.processed, id)
	p.mu.Unlock()
	return nil
}

func (p *fakeProcessor) Unfinished() ([]string, error) {
	return p.unfinished, nil
}

func (p *fakeProcessor) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.processed...)
}

func TestBatchWorkerResumesThenServesQueue(t *testing.T) {
	p := &fakeProcessor{unfinished: []string{"old"}}
	w := NewBatchWorker(p, 4)
	w.Enqueue("new-1")
	w.Enqueue("new-2")

	w.Start(context.Background())
	defer w.Stop()

	assert.Eventually(t, func() bool { return len(p.seen()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"old", "new-1", "new-2"}, p.seen())
}

func TestBatchWorkerEnqueueNeverBlocks(t *testing.T) {
	w := NewBatchWorker(&fakeProcessor{}, 1)
	w.Enqueue("a")
	w.Enqueue("b") // dropped, stays pending in the database

	assert.Len(t, w.queue, 1)
}

type countingRunner struct {
	runs atomic.Int32
}

func (r *countingRunner) Run(context.Context) (*model.PayoutRun, error) {
	r.runs.Add(1)
	return &model.PayoutRun{}, nil
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler("every tuesday-ish", &countingRunner{})
	assert.Error(t, err)
}

func TestSchedulerRunsPayouts(t *testing.T) {
	runner := &countingRunner{}
	s, err := NewScheduler("@every 1s", runner)
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return runner.runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}
