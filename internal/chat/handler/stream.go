package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gochat/internal/chat"
	"gochat/internal/chat/hub"
	"gochat/internal/chat/service"
	"gochat/internal/common"
)

const frameTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser clients are served from another origin; the bearer token is the gate.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type StreamOptions struct {
	// SessionBuffer bounds each session's outbound queue.
	SessionBuffer int
	// RequireMembershipToJoin checks conversation membership before a room join.
	RequireMembershipToJoin bool
}

// StreamHandler serves GET /ws. Each connection becomes a hub session bound
// to the user behind the token.
type StreamHandler struct {
	hub      *hub.Hub
	auth     common.Authenticator
	messages service.MessageService
	queries  service.QueryService
	limiter  *common.LimiterPool
	opts     StreamOptions
	log      zerolog.Logger
}

func NewStreamHandler(
	h *hub.Hub,
	auth common.Authenticator,
	messages service.MessageService,
	queries service.QueryService,
	limiter *common.LimiterPool,
	opts StreamOptions,
	log zerolog.Logger,
) *StreamHandler {
	return &StreamHandler{
		hub:      h,
		auth:     auth,
		messages: messages,
		queries:  queries,
		limiter:  limiter,
		opts:     opts,
		log:      log,
	}
}

// inbound is a client frame. Payload is decoded per event.
type inbound struct {
	Event          string          `json:"event"`
	ConversationID string          `json:"conversationId"`
	Payload        json.RawMessage `json:"payload"`
}

func (s *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := common.BearerToken(r)
	if token == "" {
		common.WriteError(w, common.UnauthenticatedError("authorization required"))
		return
	}
	user, err := s.auth.Authenticate(r.Context(), token)
	if err != nil {
		common.WriteError(w, common.UnauthenticatedError("invalid or expired token"))
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := hub.NewConn(ws, user.ID, s.opts.SessionBuffer, s.log)
	s.hub.Register(conn)
	log := s.log.With().Str("session_id", conn.ID()).Str("user_id", user.ID).Logger()
	log.Info().Msg("session opened")

	go conn.WritePump()
	conn.ReadPump(func(frame []byte) {
		s.handleFrame(conn, user, frame, log)
	})

	s.hub.Leave(conn)
	s.limiter.Forget(conn.ID())
	log.Info().Msg("session closed")
}

func (s *StreamHandler) handleFrame(conn *hub.Conn, user *common.UserProjection, frame []byte, log zerolog.Logger) {
	var msg inbound
	if err := json.Unmarshal(frame, &msg); err != nil {
		s.reply(conn, "", common.ValidationError("malformed frame"), log)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	switch msg.Event {
	case chat.EventJoinConversation:
		if msg.ConversationID == "" {
			s.reply(conn, "", common.ValidationError("conversationId is required"), log)
			return
		}
		if s.opts.RequireMembershipToJoin {
			if err := s.queries.CanJoin(ctx, msg.ConversationID, user.ID); err != nil {
				s.reply(conn, msg.ConversationID, err, log)
				return
			}
		}
		s.hub.Join(conn, msg.ConversationID)

	case chat.EventLeaveConversation:
		s.hub.LeaveRoom(conn, msg.ConversationID)

	case chat.EventSendMessage:
		if !s.limiter.Allow(conn.ID()) {
			s.reply(conn, msg.ConversationID, common.ValidationError("sending too fast"), log)
			return
		}
		var in service.SendInput
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &in); err != nil {
				s.reply(conn, msg.ConversationID, common.ValidationError("malformed message payload"), log)
				return
			}
		}
		if in.ConversationID == "" {
			in.ConversationID = msg.ConversationID
		}
		in.SenderID = user.ID
		// the new message reaches this session through the room
		if _, err := s.messages.Send(ctx, in); err != nil {
			s.reply(conn, in.ConversationID, err, log)
		}

	default:
		s.reply(conn, msg.ConversationID, common.ValidationError("unknown event %q", msg.Event), log)
	}
}

// reply sends an error envelope to this session only.
func (s *StreamHandler) reply(conn *hub.Conn, conversationID string, err error, log zerolog.Logger) {
	message := err.Error()
	if !service.IsClientError(err) {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("live request failed")
		message = "internal server error"
	}
	env := chat.Envelope{
		Event:          chat.EventError,
		ConversationID: conversationID,
		Payload:        chat.ErrorPayload{Message: message},
	}
	if err := hub.Send(conn, env); err != nil {
		log.Debug().Err(err).Msg("error reply dropped")
	}
}
