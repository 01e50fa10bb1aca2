package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/aretw0/mise/pkg/domain"
)

// Event is the SSE payload for one session change.
type Event struct {
	Type     domain.EventType    `json:"type"`
	RecipeID string              `json:"recipe_id"`
	ActiveID string              `json:"active_id"`
	Reason   domain.EndReason    `json:"reason,omitempty"`
	Diff     *domain.SessionDiff `json:"diff,omitempty"`
}

// allRecipes is the subscription key of clients that want every recipe.
const allRecipes = ""

type message struct {
	eventType domain.EventType
	data      string
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan message]struct{} // RecipeID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan message]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(recipeID string) (<-chan message, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan message, 16)
	if _, ok := sm.subscribers[recipeID]; !ok {
		sm.subscribers[recipeID] = make(map[chan message]struct{})
	}
	sm.subscribers[recipeID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			subs := sm.subscribers[recipeID]
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, recipeID)
				}
			}
		})
	}
}

// Close ends every open stream.
func (sm *StreamManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for key, subs := range sm.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(sm.subscribers, key)
	}
}

// Subscribers returns the number of open streams.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	n := 0
	for _, subs := range sm.subscribers {
		n += len(subs)
	}
	return n
}

// Publish is a session listener: it turns the event into a diff and fans it
// out to the recipe's streams and the global ones. It never blocks.
func (sm *StreamManager) Publish(e domain.SessionEvent) {
	diff := domain.Diff(e.Before, e.After)
	if diff == nil && e.Type == domain.EventTicked {
		return
	}
	data, err := json.Marshal(Event{
		Type:     e.Type,
		RecipeID: e.RecipeID,
		ActiveID: e.ActiveID,
		Reason:   e.Reason,
		Diff:     diff,
	})
	if err != nil {
		sm.logger.Error("SSE: event encode failed", "err", err)
		return
	}
	msg := message{eventType: e.Type, data: string(data)}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.broadcast(e.RecipeID, msg)
	sm.broadcast(allRecipes, msg)
}

func (sm *StreamManager) broadcast(key string, msg message) {
	for ch := range sm.subscribers[key] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "recipe_id", key)
		}
	}
}

// subscribeEvents handles GET /events (SSE).
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	recipeID := r.URL.Query().Get("recipe_id")
	var types []domain.EventType
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			types = append(types, domain.EventType(strings.TrimSpace(t)))
		}
	}

	ch, cancel := s.streams.Subscribe(recipeID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Client subscribed", "recipe_id", recipeID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: Client disconnected", "recipe_id", recipeID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(types) > 0 && !slices.Contains(types, msg.eventType) {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.eventType, msg.data)
			flusher.Flush()
		}
	}
}
