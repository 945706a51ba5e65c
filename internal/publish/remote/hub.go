// Package remote adapts internal/publish's best-effort remote sink
// contract onto a websocket broadcast hub: every envelope published
// locally is fanned out to connected observers. An envelope is dropped
// (with an error log) if the hub's own buffer is full, and a client
// whose send buffer is full is disconnected.
package remote

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/forgeline/arena/internal/publish"
	"github.com/forgeline/arena/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub fans out publish.Envelope values to every connected websocket
// client for a series. It satisfies publish.RemoteSink.
type Hub struct {
	mu      sync.RWMutex
	series  map[uuid.UUID]map[*Client]bool
	publish chan envelopeForSeries
	log     *logger.Logger
}

type envelopeForSeries struct {
	seriesID uuid.UUID
	env      publish.Envelope
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		series:  make(map[uuid.UUID]map[*Client]bool),
		publish: make(chan envelopeForSeries, 256),
		log:     log,
	}
}

// Run drives broadcast until ctx is cancelled, then disconnects every
// client. Registration goes through RegisterClient directly, not Run.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case item := <-h.publish:
			h.broadcast(item.seriesID, item.env)
		}
	}
}

// Receive implements publish.RemoteSink. The envelope's payload is
// expected to carry a seriesId field when it targets a specific series;
// envelopes without one (rare) broadcast to every connected client.
func (h *Hub) Receive(env publish.Envelope) {
	seriesID := extractSeriesID(env)
	select {
	case h.publish <- envelopeForSeries{seriesID: seriesID, env: env}:
	default:
		h.log.Error("remote publish buffer full, envelope dropped", zap.String("type", env.Type))
	}
}

func extractSeriesID(env publish.Envelope) uuid.UUID {
	data, err := json.Marshal(env.Payload)
	if err != nil {
		return uuid.Nil
	}
	var probe struct {
		SeriesID uuid.UUID `json:"seriesId"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return uuid.Nil
	}
	return probe.SeriesID
}

func (h *Hub) register(seriesID uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.series[seriesID] == nil {
		h.series[seriesID] = make(map[*Client]bool)
	}
	h.series[seriesID][c] = true
}

func (h *Hub) unregister(seriesID uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.series[seriesID]; ok {
		if _, exists := clients[c]; exists {
			delete(clients, c)
			close(c.send)
			if len(clients) == 0 {
				delete(h.series, seriesID)
			}
		}
	}
}

func (h *Hub) broadcast(seriesID uuid.UUID, env publish.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(env)
	if err != nil {
		h.log.LogError("failed to marshal remote publish envelope", err)
		return
	}

	targets := h.series[seriesID]
	if seriesID == uuid.Nil {
		for _, clients := range h.series {
			h.sendToAll(clients, data)
		}
		return
	}
	h.sendToAll(targets, data)
}

func (h *Hub) sendToAll(clients map[*Client]bool, data []byte) {
	for c := range clients {
		select {
		case c.send <- data:
		default:
			h.log.Info("remote client send buffer full, disconnecting")
			close(c.send)
			delete(clients, c)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for seriesID, clients := range h.series {
		for c := range clients {
			close(c.send)
			delete(clients, c)
		}
		delete(h.series, seriesID)
	}
}

// RegisterClient wires a new websocket client into the hub for seriesID.
func (h *Hub) RegisterClient(seriesID uuid.UUID, c *Client) {
	h.register(seriesID, c)
}

// Stats reports connected client counts, useful for a /metrics or admin
// endpoint.
func (h *Hub) Stats() (seriesCount, clientCount int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seriesCount = len(h.series)
	for _, clients := range h.series {
		clientCount += len(clients)
	}
	return
}
