package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests drive broadcast and the client registry directly so no Redis
// connection is needed; the pubsub side is exercised against a live
// instance by the repository integration suite's environment.

func newTestClient() *Client {
	return &Client{
		Events: make(chan Event, clientBufferSize),
		Done:   make(chan struct{}),
	}
}

func register(b *Broker, client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = true
}

func TestBroker_Broadcast(t *testing.T) {
	t.Run("delivers to every client", func(t *testing.T) {
		b := NewBroker(nil, "default")
		first := newTestClient()
		second := newTestClient()
		register(b, first)
		register(b, second)

		event := Event{Type: "pageview", SessionID: "s1", Timestamp: time.Now()}
		b.broadcast(event)

		for _, client := range []*Client{first, second} {
			select {
			case got := <-client.Events:
				assert.Equal(t, "s1", got.SessionID)
			default:
				t.Fatal("client did not receive the event")
			}
		}
	})

	t.Run("preserves order per client", func(t *testing.T) {
		b := NewBroker(nil, "default")
		client := newTestClient()
		register(b, client)

		b.broadcast(Event{Type: "session_started", SessionID: "s1"})
		b.broadcast(Event{Type: "pageview", SessionID: "s1"})
		b.broadcast(Event{Type: "event", SessionID: "s1"})

		assert.Equal(t, "session_started", (<-client.Events).Type)
		assert.Equal(t, "pageview", (<-client.Events).Type)
		assert.Equal(t, "event", (<-client.Events).Type)
	})

	t.Run("drops for a slow client without blocking", func(t *testing.T) {
		b := NewBroker(nil, "default")
		slow := newTestClient()
		healthy := newTestClient()
		register(b, slow)
		register(b, healthy)

		for i := 0; i < clientBufferSize; i++ {
			slow.Events <- Event{Type: "filler"}
		}

		done := make(chan struct{})
		go func() {
			b.broadcast(Event{Type: "pageview", SessionID: "s1"})
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("broadcast blocked on a full client buffer")
		}

		// The healthy client still got it; the slow one lost it.
		select {
		case got := <-healthy.Events:
			assert.Equal(t, "pageview", got.Type)
		default:
			t.Fatal("healthy client did not receive the event")
		}
		assert.Len(t, slow.Events, clientBufferSize)
	})
}

func TestBroker_Unsubscribe(t *testing.T) {
	b := NewBroker(nil, "default")
	client := newTestClient()
	register(b, client)
	require.Equal(t, 1, b.ClientCount())

	b.Unsubscribe(client)
	assert.Equal(t, 0, b.ClientCount())

	select {
	case <-client.Done:
	default:
		t.Fatal("Done was not closed on unsubscribe")
	}

	// Second unsubscribe of the same client is a no-op.
	b.Unsubscribe(client)
	assert.Equal(t, 0, b.ClientCount())
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker(nil, "default")
	first := newTestClient()
	second := newTestClient()
	register(b, first)
	register(b, second)

	b.Close()

	assert.Equal(t, 0, b.ClientCount())
	for _, client := range []*Client{first, second} {
		select {
		case <-client.Done:
		default:
			t.Fatal("Done was not closed on broker close")
		}
	}
}
