package memorybus

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_FanOut(t *testing.T) {
	b := New()
	a, cancelA := b.Subscribe()
	c, cancelC := b.Subscribe()
	defer cancelA()
	defer cancelC()

	b.Publish("episode.added", []byte(`{"episode":4}`))

	evtA := <-a
	evtC := <-c
	assert.Equal(t, "episode.added", evtA.Topic)
	assert.Equal(t, evtA, evtC)
}

func TestBus_SlowSubscriberDropsWithoutBlocking(t *testing.T) {
	b := NewWithOptions(Options{Buffer: 2, Logger: zerolog.Nop()})
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := 0; i < 5; i++ {
		b.Publish("sync.completed", nil)
	}
	assert.Len(t, ch, 2)
	assert.Equal(t, uint64(3), b.Dropped())
}

func TestBus_CancelAndClose(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe()
	require.Equal(t, 1, b.Subscribers())

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")
	assert.Equal(t, 0, b.Subscribers())

	other, _ := b.Subscribe()
	b.Close()
	_, ok = <-other
	assert.False(t, ok, "channel should be closed after Close")

	late, _ := b.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscribing to a closed bus returns a closed channel")
	b.Publish("job.created", nil)
}
