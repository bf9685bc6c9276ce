package media

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"gochat/internal/common"
)

const uploadField = "file"

type UploadHandler struct {
	uploader *Uploader
	log      zerolog.Logger
}

func NewUploadHandler(uploader *Uploader, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{uploader: uploader, log: log}
}

// RegisterRoutes mounts POST /upload on an authenticated api router.
func (h *UploadHandler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
}

// Upload stores one attachment and answers with {url, name, type}.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := common.UserFromContext(r.Context())
	if !ok {
		common.WriteError(w, common.UnauthenticatedError("missing user"))
		return
	}

	upload, err := h.uploader.Receive(w, r, uploadField, user.ID)
	if err != nil {
		if common.HTTPStatus(err) == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("user_id", user.ID).Msg("upload failed")
		}
		common.WriteError(w, err)
		return
	}

	h.log.Debug().
		Str("user_id", user.ID).
		Str("kind", upload.Kind.String()).
		Int64("size", upload.Size).
		Msg("attachment uploaded")
	common.WriteJSON(w, http.StatusCreated, upload)
}
