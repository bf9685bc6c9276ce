package media

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"gochat/internal/common"
)

// HTTPServer streams stored files back by id.
type HTTPServer struct {
	storage Storage
	router  *mux.Router
	log     zerolog.Logger
}

func NewHTTPServer(storage Storage, log zerolog.Logger) *HTTPServer {
	s := &HTTPServer{storage: storage, router: mux.NewRouter(), log: log}
	s.RegisterRoutes(s.router)
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	return s
}

// RegisterRoutes mounts GET /media/{fileId} on router.
func (s *HTTPServer) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/media/{fileId}", s.serveFile).Methods(http.MethodGet)
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *HTTPServer) serveFile(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["fileId"]

	reader, file, err := s.storage.Download(r.Context(), fileID)
	if err != nil {
		if common.HTTPStatus(err) == http.StatusInternalServerError {
			s.log.Error().Err(err).Str("file_id", fileID).Msg("media download failed")
		}
		common.WriteError(w, err)
		return
	}
	defer reader.Close()

	contentType := file.ContentType
	if contentType == "" {
		contentType = detectContentType("", file.Filename)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Cache-Control", "private, max-age=86400")

	if _, err := io.Copy(w, reader); err != nil {
		s.log.Warn().Err(err).Str("file_id", fileID).Msg("error streaming file")
	}
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	common.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
