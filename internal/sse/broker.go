// Package sse implements a Server-Sent Events broker that tells open viewer
// pages when documents or the listing change.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event types sent to clients.
const (
	TypeConnected       = "connected"
	TypeDocumentCreated = "document.created"
	TypeDocumentUpdated = "document.updated"
	TypeDocumentDeleted = "document.deleted"
	TypeListingUpdated  = "listing.updated"
)

// clientBuffer is the per-client message backlog; overflowing messages are
// dropped for that client.
const clientBuffer = 64

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Client is one subscribed connection.
type Client struct {
	ID string
	C  chan []byte
}

type documentEventReq struct {
	kind string
	path string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal event loop owns the mutable state (clients and the
// listing throttle timestamp). Public methods talk to the loop through
// channels, so no mutexes are required.
type Broker struct {
	listingMin time.Duration

	subscribeCh   chan *Client
	unsubscribeCh chan *Client
	publishCh     chan Event
	documentCh    chan documentEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that sends listing.updated at most once per
// listingThrottle.
func NewBroker(listingThrottle time.Duration) *Broker {
	if listingThrottle <= 0 {
		listingThrottle = 2 * time.Second
	}

	b := &Broker{
		listingMin:    listingThrottle,
		subscribeCh:   make(chan *Client),
		unsubscribeCh: make(chan *Client),
		publishCh:     make(chan Event, 256),
		documentCh:    make(chan documentEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// Format encodes an event in the text/event-stream wire format.
func Format(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", event.Type, payload), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[string]*Client)
	var lastListing time.Time

	broadcast := func(event Event) {
		raw, err := Format(event)
		if err != nil {
			return
		}
		for _, c := range clients {
			select {
			case c.C <- raw:
			default:
				// Client buffer full; skip to avoid blocking the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for _, c := range clients {
				close(c.C)
			}
			return

		case c := <-b.subscribeCh:
			clients[c.ID] = c

		case c := <-b.unsubscribeCh:
			if _, ok := clients[c.ID]; ok {
				delete(clients, c.ID)
				close(c.C)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.documentCh:
			data := map[string]string{"path": req.path}
			switch req.kind {
			case "created":
				broadcast(Event{Type: TypeDocumentCreated, Data: data})
			case "updated":
				broadcast(Event{Type: TypeDocumentUpdated, Data: data})
			case "deleted":
				broadcast(Event{Type: TypeDocumentDeleted, Data: data})
			default:
				continue
			}

			now := time.Now()
			if now.Sub(lastListing) >= b.listingMin {
				lastListing = now
				broadcast(Event{Type: TypeListingUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a new client under a fresh id.
func (b *Broker) Subscribe() *Client {
	c := &Client{ID: uuid.NewString(), C: make(chan []byte, clientBuffer)}
	if b.closed.Load() {
		close(c.C)
		return c
	}

	select {
	case b.subscribeCh <- c:
	case <-b.stopped:
		close(c.C)
	}
	return c
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(c *Client) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- c:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishDocumentEvent publishes a document change (kind is "created",
// "updated" or "deleted") and a throttled listing.updated event.
func (b *Broker) PublishDocumentEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.documentCh <- documentEventReq{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). The first event
// carries the client id.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	c := b.Subscribe()
	defer b.Unsubscribe(c)

	if hello, err := Format(Event{Type: TypeConnected, Data: map[string]string{"id": c.ID}}); err == nil {
		_, _ = w.Write(hello)
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.C:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
