package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmitic/sunat-noticia/pkg/domain"
)

func TestBroadcaster_RegisterAndBroadcast(t *testing.T) {
	b := NewBroadcaster()
	assert.Zero(t, b.Count())

	ch1, unreg1 := b.Register()
	ch2, unreg2 := b.Register()
	defer unreg1()
	defer unreg2()
	assert.Equal(t, 2, b.Count())

	b.Broadcast(domain.NewsItem{ID: 1, Title: "COMUNICADO"})

	got1 := <-ch1
	got2 := <-ch2
	assert.Equal(t, int64(1), got1.ID)
	assert.Equal(t, "COMUNICADO", got2.Title)
}

func TestBroadcaster_Unregister(t *testing.T) {
	b := NewBroadcaster()

	ch, unregister := b.Register()
	require.Equal(t, 1, b.Count())

	unregister()
	assert.Zero(t, b.Count())

	_, open := <-ch
	assert.False(t, open, "channel closed on unregister")

	unregister() // idempotent
	assert.Zero(t, b.Count())
}

func TestBroadcaster_SlowClientDropped(t *testing.T) {
	b := NewBroadcaster()

	_, unregSlow := b.Register()
	defer unregSlow()
	fast, unregFast := b.Register()
	defer unregFast()

	// overflow the slow client's buffer; nobody reads it
	for i := 0; i < defaultBuffer+5; i++ {
		b.Broadcast(domain.NewsItem{ID: int64(i)})
		<-fast // keep the fast client drained
	}

	assert.Equal(t, 1, b.Count(), "slow client dropped, fast client kept")

	// broadcasting after the drop still works and doesn't panic
	b.Broadcast(domain.NewsItem{ID: 99})
	got := <-fast
	assert.Equal(t, int64(99), got.ID)
}

func TestBroadcaster_BroadcastWithNoClients(t *testing.T) {
	b := NewBroadcaster()
	b.Broadcast(domain.NewsItem{ID: 1}) // no-op, no panic
	assert.Zero(t, b.Count())
}
