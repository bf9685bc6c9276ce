// Package handler exposes the chat engine over REST and the websocket live channel.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"gochat/internal/chat/models"
	"gochat/internal/chat/service"
	"gochat/internal/common"
)

type ChatHandler struct {
	messages  service.MessageService
	convs     service.ConversationService
	queries   service.QueryService
	projector *service.Projector
	log       zerolog.Logger
}

func NewChatHandler(
	messages service.MessageService,
	convs service.ConversationService,
	queries service.QueryService,
	projector *service.Projector,
	log zerolog.Logger,
) *ChatHandler {
	return &ChatHandler{
		messages:  messages,
		convs:     convs,
		queries:   queries,
		projector: projector,
		log:       log,
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.ValidationError("invalid request body")
	}
	return nil
}

// caller returns the authenticated user or writes 401.
func caller(w http.ResponseWriter, r *http.Request) (*common.UserProjection, bool) {
	user, ok := common.UserFromContext(r.Context())
	if !ok {
		common.WriteError(w, common.UnauthenticatedError("authorization required"))
		return nil, false
	}
	return user, true
}

func (h *ChatHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if common.HTTPStatus(err) == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	common.WriteError(w, err)
}

func (h *ChatHandler) conversationView(ctx context.Context, conv *models.Conversation) (*models.ConversationView, error) {
	return h.projector.Conversation(ctx, conv)
}

// ListConversations handles GET /api/conversations.
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	views, err := h.queries.ListConversations(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, views)
}

// StartDirect handles POST /api/conversations.
func (h *ChatHandler) StartDirect(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		ParticipantID string `json:"participantId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	conv, created, err := h.convs.FindOrCreateDirect(r.Context(), user.ID, strings.TrimSpace(req.ParticipantID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.conversationView(r.Context(), conv)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	common.WriteJSON(w, status, view)
}

func (h *ChatHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var in service.GroupInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	conv, err := h.convs.CreateGroup(r.Context(), user.ID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.conversationView(r.Context(), conv)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, view)
}

func (h *ChatHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var in service.GroupMetaInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	conv, err := h.convs.UpdateGroupMeta(r.Context(), mux.Vars(r)["id"], user.ID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.conversationView(r.Context(), conv)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, view)
}

func (h *ChatHandler) UpdateParticipants(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var in service.MembershipInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	conv, err := h.convs.UpdateMembership(r.Context(), mux.Vars(r)["id"], user.ID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.conversationView(r.Context(), conv)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, view)
}

func (h *ChatHandler) ListPinned(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	views, err := h.queries.ListPinned(r.Context(), mux.Vars(r)["id"], user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, views)
}

// SearchMessages handles GET /api/messages/search?query=&conversationId=.
func (h *ChatHandler) SearchMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	views, err := h.queries.SearchMessages(r.Context(), user.ID, service.SearchInput{
		Query:          q.Get("query"),
		ConversationID: q.Get("conversationId"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, views)
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	views, err := h.queries.ListMessages(r.Context(), mux.Vars(r)["conversationId"], user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, views)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var in service.SendInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	in.SenderID = user.ID

	view, err := h.messages.Send(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, view)
}

func (h *ChatHandler) ForwardMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var in service.ForwardInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	in.ActorID = user.ID

	result, err := h.messages.Forward(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, result)
}

func (h *ChatHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.messages.Edit(r.Context(), mux.Vars(r)["id"], user.ID, req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, view)
}

func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.messages.Delete(r.Context(), id, user.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]string{"id": id, "message": "message deleted"})
}

func (h *ChatHandler) React(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.messages.React(r.Context(), mux.Vars(r)["id"], user.ID, req.Emoji)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, view)
}

func (h *ChatHandler) Pin(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	view, err := h.messages.Pin(r.Context(), mux.Vars(r)["id"], user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, view)
}

func (h *ChatHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Status models.MessageStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.messages.UpdateStatus(r.Context(), mux.Vars(r)["id"], user.ID, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, view)
}
