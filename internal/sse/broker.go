// Package sse streams project and asset change notifications to browsers
// as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event is one notification. ProjectID scopes it: clients subscribed to a
// single project only see events carrying that id. Global events leave it
// empty.
type Event struct {
	Type      string `json:"type"`
	ProjectID string `json:"-"`
	Data      any    `json:"data"`
}

// Client is a subscription handle returned by Subscribe.
type Client struct {
	C       chan []byte
	project string
}

type assetChange struct {
	kind      string
	projectID string
	path      string
}

// Broker fans events out to subscribed clients.
//
// One goroutine owns the client set and the per-project tree throttle; the
// exported methods talk to it over channels.
type Broker struct {
	treeMin   time.Duration
	keepAlive time.Duration

	subscribeCh   chan *Client
	unsubscribeCh chan *Client
	publishCh     chan Event
	assetCh       chan assetChange
	countCh       chan chan int

	seq     atomic.Uint64
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithKeepAlive sets how often ServeHTTP writes a comment line to idle
// streams. Zero disables it.
func WithKeepAlive(d time.Duration) BrokerOption {
	return func(b *Broker) { b.keepAlive = d }
}

// NewBroker starts a broker. assets.changed is sent at most once per
// project per treeThrottle.
func NewBroker(treeThrottle time.Duration, opts ...BrokerOption) *Broker {
	if treeThrottle <= 0 {
		treeThrottle = 2 * time.Second
	}

	b := &Broker{
		treeMin:       treeThrottle,
		keepAlive:     30 * time.Second,
		subscribeCh:   make(chan *Client),
		unsubscribeCh: make(chan *Client),
		publishCh:     make(chan Event, 256),
		assetCh:       make(chan assetChange, 256),
		countCh:       make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.loop()
	return b
}

func (b *Broker) frame(ev Event) ([]byte, bool) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, false
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", b.seq.Add(1), ev.Type, payload)), true
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[*Client]struct{})
	lastTree := make(map[string]time.Time)

	send := func(ev Event) {
		msg, ok := b.frame(ev)
		if !ok {
			return
		}
		for c := range clients {
			if c.project != "" && c.project != ev.ProjectID {
				continue
			}
			select {
			case c.C <- msg:
			default:
				// slow reader, drop
			}
		}
	}

	prune := time.NewTicker(time.Minute)
	defer prune.Stop()

	for {
		select {
		case <-b.stopCh:
			for c := range clients {
				close(c.C)
			}
			return

		case c := <-b.subscribeCh:
			clients[c] = struct{}{}

		case c := <-b.unsubscribeCh:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.C)
			}

		case ev := <-b.publishCh:
			send(ev)

		case ch := <-b.assetCh:
			switch ch.kind {
			case "created", "updated", "deleted", "renamed":
				send(Event{
					Type:      "asset." + ch.kind,
					ProjectID: ch.projectID,
					Data:      map[string]string{"projectId": ch.projectID, "path": ch.path},
				})
			}
			now := time.Now()
			if now.Sub(lastTree[ch.projectID]) >= b.treeMin {
				lastTree[ch.projectID] = now
				send(Event{
					Type:      "assets.changed",
					ProjectID: ch.projectID,
					Data:      map[string]string{"projectId": ch.projectID},
				})
			}

		case now := <-prune.C:
			for id, at := range lastTree {
				if now.Sub(at) >= b.treeMin {
					delete(lastTree, id)
				}
			}

		case resp := <-b.countCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker and closes every client channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. A non-empty projectID restricts it to that
// project's events.
func (b *Broker) Subscribe(projectID string) *Client {
	c := &Client{C: make(chan []byte, 64), project: projectID}
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
	case b.countCh <- resp:
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

// Publish queues an event for delivery.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- ev:
	case <-b.stopped:
	}
}

// PublishAssetEvent reports a file change inside a project. Besides the
// asset.<kind> event it emits a throttled assets.changed for the project.
func (b *Broker) PublishAssetEvent(kind, projectID, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.assetCh <- assetChange{kind: kind, projectID: projectID, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events (GET /api/events). The optional "project" query
// parameter limits the stream to one project.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	c := b.Subscribe(r.URL.Query().Get("project"))
	defer b.Unsubscribe(c)

	var tick <-chan time.Time
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		tick = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-c.C:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
