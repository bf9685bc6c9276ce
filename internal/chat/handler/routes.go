package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the chat REST API under api, which must already carry
// the auth middleware, and the live channel on root.
func RegisterRoutes(root, api *mux.Router, chatHandler *ChatHandler, stream *StreamHandler) {
	conversations := api.PathPrefix("/conversations").Subrouter()
	conversations.HandleFunc("", chatHandler.ListConversations).Methods(http.MethodGet)
	conversations.HandleFunc("", chatHandler.StartDirect).Methods(http.MethodPost)
	conversations.HandleFunc("/group", chatHandler.CreateGroup).Methods(http.MethodPost)
	conversations.HandleFunc("/{id}/group", chatHandler.UpdateGroup).Methods(http.MethodPut)
	conversations.HandleFunc("/{id}/participants", chatHandler.UpdateParticipants).Methods(http.MethodPut)
	conversations.HandleFunc("/{id}/pinned", chatHandler.ListPinned).Methods(http.MethodGet)

	messages := api.PathPrefix("/messages").Subrouter()
	// search must be registered before the {conversationId} listing
	messages.HandleFunc("/search", chatHandler.SearchMessages).Methods(http.MethodGet)
	messages.HandleFunc("/forward", chatHandler.ForwardMessages).Methods(http.MethodPost)
	messages.HandleFunc("/{conversationId}", chatHandler.ListMessages).Methods(http.MethodGet)
	messages.HandleFunc("", chatHandler.SendMessage).Methods(http.MethodPost)
	messages.HandleFunc("/{id}", chatHandler.EditMessage).Methods(http.MethodPut)
	messages.HandleFunc("/{id}", chatHandler.DeleteMessage).Methods(http.MethodDelete)
	messages.HandleFunc("/{id}/reactions", chatHandler.React).Methods(http.MethodPost)
	messages.HandleFunc("/{id}/pin", chatHandler.Pin).Methods(http.MethodPut)
	messages.HandleFunc("/{id}/status", chatHandler.UpdateStatus).Methods(http.MethodPut)

	root.Handle("/ws", stream).Methods(http.MethodGet)
}
