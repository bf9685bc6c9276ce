package user

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"gochat/internal/common"
	"gochat/internal/media"
)

const avatarField = "avatar"

// Handler wires HTTP requests to UserService.
type Handler struct {
	users    UserService
	uploader *media.Uploader
	log      zerolog.Logger
}

func NewHandler(users UserService, uploader *media.Uploader, log zerolog.Logger) *Handler {
	return &Handler{users: users, uploader: uploader, log: log}
}

// RegisterRoutes mounts register and login on root ahead of the
// authenticated api subrouter, and the account routes on api.
func (h *Handler) RegisterRoutes(root, api *mux.Router) {
	root.HandleFunc("/api/register", h.Register).Methods(http.MethodPost)
	root.HandleFunc("/api/login", h.Login).Methods(http.MethodPost)

	users := api.PathPrefix("/users").Subrouter()
	users.HandleFunc("", h.List).Methods(http.MethodGet)
	users.HandleFunc("/search", h.Search).Methods(http.MethodGet)
	users.HandleFunc("/me", h.Me).Methods(http.MethodGet)
	users.HandleFunc("/profile", h.UpdateProfile).Methods(http.MethodPut)
	users.HandleFunc("/avatar", h.UploadAvatar).Methods(http.MethodPost)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if common.HTTPStatus(err) == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	common.WriteError(w, err)
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.ValidationError("invalid request body")
	}
	return nil
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.users.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.users.Login(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := common.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, common.UnauthenticatedError("authorization required"))
		return
	}
	user, err := h.users.GetProfile(r.Context(), caller.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := common.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, common.UnauthenticatedError("authorization required"))
		return
	}
	var in ProfileInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.users.UpdateProfile(r.Context(), caller.ID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, user)
}

// UploadAvatar stores a multipart image under the avatar field and points the profile at it.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	caller, ok := common.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, common.UnauthenticatedError("authorization required"))
		return
	}
	upload, err := h.uploader.ReceiveImage(w, r, avatarField, caller.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.users.SetAvatar(r.Context(), caller.ID, upload.URL)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := common.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, common.UnauthenticatedError("authorization required"))
		return
	}
	users, err := h.users.ListUsers(r.Context(), caller.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, projections(users))
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	caller, ok := common.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, common.UnauthenticatedError("authorization required"))
		return
	}
	users, err := h.users.SearchUsers(r.Context(), caller.ID, r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, projections(users))
}

// projections hides email addresses of other accounts.
func projections(users []*User) []common.UserProjection {
	out := make([]common.UserProjection, 0, len(users))
	for _, u := range users {
		out = append(out, u.Projection())
	}
	return out
}
