package user

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gochat/internal/common"
	"gochat/internal/config"
	"gochat/internal/media"
)

type testServer struct {
	router *mux.Router
	svc    *Service
}

func newHandlerServer(t *testing.T) *testServer {
	t.Helper()
	passwords, err := common.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewService(NewMemoryRepository(), common.NewTokenManager("test-secret", time.Hour), passwords, zerolog.Nop())
	uploader := media.NewUploader(media.NewMemoryStorage(), config.UploadConfig{
		MaxBytes:     1024,
		AllowedTypes: []string{"image/png", "application/pdf"},
	}, "/media")

	root := mux.NewRouter()
	api := root.PathPrefix("/api").Subrouter()
	api.Use(common.AuthMiddleware(svc))
	NewHandler(svc, uploader, zerolog.Nop()).RegisterRoutes(root, api)
	return &testServer{router: root, svc: svc}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) signup(t *testing.T, username string) AuthResult {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/register", "", RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret1",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var res AuthResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	return res
}

func TestHandler_RegisterAndLogin(t *testing.T) {
	s := newHandlerServer(t)
	alice := s.signup(t, "alice")
	assert.NotEmpty(t, alice.Token)
	assert.NotContains(t, alice.User.PasswordHash, "secret1")

	rr := s.do(t, http.MethodPost, "/api/register", "", RegisterInput{Username: "alice", Email: "other@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/login", "", LoginInput{Email: "alice@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"token"`)
	assert.NotContains(t, rr.Body.String(), "password")

	rr = s.do(t, http.MethodPost, "/api/login", "", LoginInput{Email: "alice@example.com", Password: "wrong1"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_RequiresToken(t *testing.T) {
	s := newHandlerServer(t)

	rr := s.do(t, http.MethodGet, "/api/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/users/me", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_ProfileAndDirectory(t *testing.T) {
	s := newHandlerServer(t)
	alice := s.signup(t, "alice")
	s.signup(t, "bob")

	rr := s.do(t, http.MethodGet, "/api/users/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"email":"alice@example.com"`)

	rr = s.do(t, http.MethodPut, "/api/users/profile", alice.Token, ProfileInput{Username: "alice_w"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"username":"alice_w"`)

	rr = s.do(t, http.MethodGet, "/api/users", alice.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var listed []common.UserProjection
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "bob", listed[0].Username)
	assert.NotContains(t, rr.Body.String(), "bob@example.com")

	rr = s.do(t, http.MethodGet, "/api/users/search?q=BO", alice.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"username":"bob"`)

	rr = s.do(t, http.MethodGet, "/api/users/search", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func avatarRequest(t *testing.T, token, filename, contentType string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="avatar"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("image-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/users/avatar", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestHandler_UploadAvatar(t *testing.T) {
	s := newHandlerServer(t)
	alice := s.signup(t, "alice")

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, avatarRequest(t, alice.Token, "me.png", "image/png"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.True(t, strings.HasPrefix(updated.Avatar, "/media/"))

	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, avatarRequest(t, alice.Token, "cv.pdf", "application/pdf"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
