// Package hub keeps the conversation rooms of live sessions and fans events out to them.
package hub

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"gochat/internal/chat"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSlowConsumer  = errors.New("session outbound buffer full")
)

// Session is one live connection bound to an authenticated user.
// Deliver must not block.
type Session interface {
	ID() string
	UserID() string
	Deliver(frame []byte) error
	Close()
}

// Hub is the only owner of room membership. Delivery is at most once, to
// current members only, with no buffering or replay.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]Session
	rooms    map[string]map[string]Session
	joined   map[string]map[string]struct{}
	log      zerolog.Logger
}

func New(log zerolog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]Session),
		rooms:    make(map[string]map[string]Session),
		joined:   make(map[string]map[string]struct{}),
		log:      log,
	}
}

// Register tracks s from the moment it connects, before it joins any room,
// so Shutdown can close it.
func (h *Hub) Register(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID()] = s
}

// Join adds s to the conversation's room. Authorization is the caller's job.
func (h *Hub) Join(s Session, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[s.ID()] = s

	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[string]Session)
		h.rooms[conversationID] = room
	}
	room[s.ID()] = s

	convs, ok := h.joined[s.ID()]
	if !ok {
		convs = make(map[string]struct{})
		h.joined[s.ID()] = convs
	}
	convs[conversationID] = struct{}{}

	h.updateGauges()
}

// LeaveRoom removes s from one room.
func (h *Hub) LeaveRoom(s Session, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(s.ID(), conversationID)
	if convs := h.joined[s.ID()]; len(convs) == 0 {
		delete(h.joined, s.ID())
	}
	h.updateGauges()
}

// Leave removes s from every room it joined and forgets it. Called on disconnect.
func (h *Hub) Leave(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conversationID := range h.joined[s.ID()] {
		h.removeLocked(s.ID(), conversationID)
	}
	delete(h.joined, s.ID())
	delete(h.sessions, s.ID())
	h.updateGauges()
}

// EvictUsers takes every session of the given users out of the conversation's
// room. The sessions stay connected and keep their other rooms. It returns how
// many sessions were evicted.
func (h *Hub) EvictUsers(conversationID string, userIDs ...string) int {
	if len(userIDs) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		drop[id] = struct{}{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var evicted int
	for sessionID, s := range h.rooms[conversationID] {
		if _, ok := drop[s.UserID()]; !ok {
			continue
		}
		h.removeLocked(sessionID, conversationID)
		if len(h.joined[sessionID]) == 0 {
			delete(h.joined, sessionID)
		}
		evicted++
	}
	if evicted > 0 {
		h.updateGauges()
		h.log.Info().
			Str("conversation_id", conversationID).
			Int("sessions", evicted).
			Msg("evicted removed members from room")
	}
	return evicted
}

func (h *Hub) removeLocked(sessionID, conversationID string) {
	if room, ok := h.rooms[conversationID]; ok {
		delete(room, sessionID)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
	if convs, ok := h.joined[sessionID]; ok {
		delete(convs, conversationID)
	}
}

// Publish delivers the event to the sessions in the room right now. A session
// that cannot take the frame is dropped from the hub and closed.
func (h *Hub) Publish(conversationID, event string, payload interface{}) {
	h.mu.RLock()
	room := h.rooms[conversationID]
	targets := make([]Session, 0, len(room))
	for _, s := range room {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	eventsPublished.WithLabelValues(event).Inc()
	if len(targets) == 0 {
		return
	}

	frame, err := json.Marshal(chat.Envelope{Event: event, ConversationID: conversationID, Payload: payload})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("encode event")
		return
	}

	for _, s := range targets {
		if err := s.Deliver(frame); err != nil {
			deliveriesDropped.Inc()
			h.log.Warn().
				Err(err).
				Str("session_id", s.ID()).
				Str("user_id", s.UserID()).
				Str("conversation_id", conversationID).
				Str("event", event).
				Msg("dropping session after failed delivery")
			h.Leave(s)
			s.Close()
			continue
		}
		deliveries.Inc()
	}
}

// Send writes an envelope to a single session, outside any room.
func Send(s Session, env chat.Envelope) error {
	frame, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.Deliver(frame)
}

// Members returns how many sessions are in the room.
func (h *Hub) Members(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// Rooms lists the conversations a session has joined.
func (h *Hub) Rooms(sessionID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.joined[sessionID]))
	for id := range h.joined[sessionID] {
		out = append(out, id)
	}
	return out
}

func (h *Hub) updateGauges() {
	sessionsJoined.Set(float64(len(h.joined)))
	roomsActive.Set(float64(len(h.rooms)))
}

// Shutdown closes every known session, joined or not, and empties the hub.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	sessions := h.sessions
	for _, room := range h.rooms {
		for id, s := range room {
			sessions[id] = s
		}
	}
	h.sessions = make(map[string]Session)
	h.rooms = make(map[string]map[string]Session)
	h.joined = make(map[string]map[string]struct{})
	h.updateGauges()
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	h.log.Info().Int("sessions", len(sessions)).Msg("hub shut down")
}
