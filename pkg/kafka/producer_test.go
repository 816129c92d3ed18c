package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducerFlushesOnClose(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, 4)
	p.Start(context.Background())

	ctx := context.Background()
	require.NoError(t, p.Publish(ctx, []byte("o1"), []byte(`{"a":1}`)))
	require.NoError(t, p.Publish(ctx, []byte("o2"), []byte(`{"a":2}`), kafka.Header{Key: "event_type", Value: []byte("order.paid")}))
	p.Close()
	p.WaitClosed()

	w.mu.Lock()
	defer w.mu.Unlock()
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "o1", string(w.msgs[0].Key))
	assert.Equal(t, "event_type", w.msgs[1].Headers[0].Key)
	assert.True(t, w.closed)

	assert.ErrorIs(t, p.Publish(ctx, nil, nil), ErrClosed)
}

func TestProducerFlushesOnContextCancel(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, 4)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Publish(context.Background(), []byte("k"), []byte("v")))
	p.Start(ctx)
	cancel()
	p.WaitClosed()

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Len(t, w.msgs, 1)
	assert.True(t, w.closed)
}

func TestPublishHonoursContextWhenFull(t *testing.T) {
	p := newProducer(&recordingWriter{}, 1)
	require.NoError(t, p.Publish(context.Background(), nil, []byte("1")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, nil, []byte("2")), context.Canceled)
}

func TestPublishRacingCloseIsWrittenOrRejected(t *testing.T) {
	ctx := context.Background()
	for round := 0; round < 50; round++ {
		w := &recordingWriter{}
		p := newProducer(w, 8)
		p.Start(ctx)

		var accepted int64
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					if err := p.Publish(ctx, nil, []byte("x")); err == nil {
						atomic.AddInt64(&accepted, 1)
					} else {
						assert.ErrorIs(t, err, ErrClosed)
					}
				}
			}()
		}
		p.Close()
		wg.Wait()
		p.WaitClosed()

		w.mu.Lock()
		assert.Len(t, w.msgs, int(atomic.LoadInt64(&accepted)))
		w.mu.Unlock()
	}
}
