package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reekid420/website-searcher/internal/shared"
)

func TestSubscribeReceivesResultAndComplete(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	b.PublishResult(shared.SearchResult{Site: "fitgirl", Title: "Elden Ring"})
	b.PublishComplete(shared.CompleteSummary{Total: 1})

	var kinds []Kind
	for evt := range ch {
		kinds = append(kinds, evt.Kind)
	}

	require.Len(t, kinds, 2)
	assert.Equal(t, KindResult, kinds[0])
	assert.Equal(t, KindComplete, kinds[1])
}

func TestChannelClosesAfterComplete(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	b.PublishComplete(shared.CompleteSummary{})

	// The terminal Complete event is delivered first, then the channel closes.
	evt, open := <-ch
	require.True(t, open)
	assert.Equal(t, KindComplete, evt.Kind)

	_, open = <-ch
	assert.False(t, open)
}

func TestSubscribeAfterCloseYieldsClosedChannel(t *testing.T) {
	b := New()
	b.PublishComplete(shared.CompleteSummary{})

	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	_, open := <-ch
	assert.False(t, open)
}

func TestMultipleSubscribersEachGetEverything(t *testing.T) {
	b := New()
	ch1, unsub1 := b.Subscribe()
	ch2, unsub2 := b.Subscribe()
	defer unsub1()
	defer unsub2()

	var wg sync.WaitGroup
	counts := make([]int, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range ch1 {
			counts[0]++
		}
	}()
	go func() {
		defer wg.Done()
		for range ch2 {
			counts[1]++
		}
	}()

	b.PublishResult(shared.SearchResult{Site: "dodi"})
	b.PublishComplete(shared.CompleteSummary{})
	wg.Wait()

	assert.Equal(t, 2, counts[0])
	assert.Equal(t, 2, counts[1])
}

func TestProgressEventsAreBestEffort(t *testing.T) {
	b := New()
	_, unsubscribe := b.Subscribe()
	defer unsubscribe()

	// Nobody drains the subscriber channel; PublishProgress must still
	// return immediately once the buffer fills instead of blocking.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			b.PublishProgress(shared.SiteProgress{Site: "fitgirl"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PublishProgress blocked with a full subscriber buffer")
	}
}
