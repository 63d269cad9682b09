package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sitepulse/tracking-server-go/internal/metrics"
	redisclient "github.com/sitepulse/tracking-server-go/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
	clientBufferSize  = 100
)

// Event is one live tracking record pushed to dashboard subscribers.
// Delivery is best-effort: no replay, no acknowledgement, per-session
// ordering only.
type Event struct {
	Type      string          `json:"event"`
	SessionID string          `json:"sessionId"`
	UserID    string          `json:"userId,omitempty"`
	IP        string          `json:"ip,omitempty"`
	UserAgent string          `json:"userAgent,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type Client struct {
	Events chan Event
	Done   chan struct{}
}

// Broker fans newly ingested records out to connected dashboard clients.
// Records travel through Redis pubsub so every server instance sees them;
// the in-process registry delivers to local subscribers.
type Broker struct {
	redis   *redisclient.Client
	siteID  string
	clients map[*Client]bool
	mu      sync.RWMutex
	once    sync.Once
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client, siteID string) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		siteID:  siteID,
		clients: make(map[*Client]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe() *Client {
	client := &Client{
		Events: make(chan Event, clientBufferSize),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	b.once.Do(func() { go b.consume() })
	b.clients[client] = true
	clientCount := len(b.clients)
	b.mu.Unlock()

	metrics.SubscribersActive.Inc()
	log.Info().
		Str("siteId", b.siteID).
		Int("clientCount", clientCount).
		Msg("dashboard client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.clients[client]; !ok {
		return
	}
	delete(b.clients, client)
	close(client.Done)

	metrics.SubscribersActive.Dec()
	log.Info().
		Str("siteId", b.siteID).
		Int("clientCount", len(b.clients)).
		Msg("dashboard client unsubscribed")
}

// Publish pushes one record onto the live channel. It is called after the
// durable append, synchronously, so pubsub order matches store order per
// session. A failure here never reaches the ingestion caller.
func (b *Broker) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := redisclient.AnalyticsChannel(b.siteID)
	if err := b.redis.Publish(ctx, channel, data).Err(); err != nil {
		return err
	}
	metrics.EventsPublished.Inc()
	return nil
}

func (b *Broker) consume() {
	channel := redisclient.AnalyticsChannel(b.siteID)
	pubsub := b.redis.Subscribe(b.ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-b.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal live event")
				continue
			}

			b.broadcast(event)
		}
	}
}

func (b *Broker) broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients {
		select {
		case client.Events <- event:
		default:
			// Slow subscriber: drop rather than block the fan-out.
			metrics.EventsDropped.Inc()
			log.Warn().
				Str("sessionId", event.SessionID).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for client := range b.clients {
		close(client.Done)
		metrics.SubscribersActive.Dec()
	}
	b.clients = make(map[*Client]bool)
}

func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
