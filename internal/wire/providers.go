// Package wire assembles the chat service from configuration.
package wire

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"gochat/internal/chat/guard"
	"gochat/internal/chat/handler"
	"gochat/internal/chat/hub"
	"gochat/internal/chat/repository"
	"gochat/internal/chat/service"
	"gochat/internal/common"
	"gochat/internal/config"
	"gochat/internal/dbmongo"
	"gochat/internal/dbmysql"
	"gochat/internal/logging"
	"gochat/internal/media"
	"gochat/internal/user"
)

// devJWTSecret signs tokens in development when JWT_SECRET is unset.
// Validate refuses to start any other environment without a secret.
const devJWTSecret = "gochat-development-secret"

type Application struct {
	Config *config.Config
	Logger zerolog.Logger
	Router http.Handler
	Hub    *hub.Hub
	Media  *media.HTTPServer
}

// MediaApplication is the standalone media server.
type MediaApplication struct {
	Config *config.Config
	Logger zerolog.Logger
	Server *media.HTTPServer
}

// Repositories is the storage selected by Store.Driver.
type Repositories struct {
	Messages      repository.MessageRepository
	Conversations repository.ConversationRepository
	Users         user.UserRepository
}

func ProvideConfig() (*config.Config, error) {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ProvideLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	logger, closeFn, err := logging.New(cfg.Logging)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	logger = logger.With().Str("service", "gochat").Logger()
	return logger, func() { _ = closeFn() }, nil
}

// ProvideMongo connects only when the store or the media driver needs MongoDB.
func ProvideMongo(cfg *config.Config, log zerolog.Logger) (*dbmongo.MongoClient, func(), error) {
	if cfg.Store.Driver != "mongo" && cfg.Media.Driver != "gridfs" {
		return nil, func() {}, nil
	}
	client, err := dbmongo.NewMongoConnection(cfg, logging.Component(log, "mongo"))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}
	return client, cleanup, nil
}

// ProvideGorm connects only for the mysql store driver.
func ProvideGorm(cfg *config.Config, log zerolog.Logger) (*gorm.DB, func(), error) {
	if cfg.Store.Driver != "mysql" {
		return nil, func() {}, nil
	}
	db, err := dbmysql.NewMySQL(cfg, logging.Component(log, "mysql"))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func ProvideRepositories(cfg *config.Config, mongoClient *dbmongo.MongoClient, db *gorm.DB) (*Repositories, error) {
	switch cfg.Store.Driver {
	case "mongo":
		return &Repositories{
			Messages:      repository.NewMongoMessageRepository(mongoClient.Database),
			Conversations: repository.NewMongoConversationRepository(mongoClient.Database),
			Users:         user.NewMongoUserRepository(mongoClient.Database),
		}, nil
	case "mysql":
		return &Repositories{
			Messages:      repository.NewGormMessageRepository(db),
			Conversations: repository.NewGormConversationRepository(db),
			Users:         user.NewGormUserRepository(db),
		}, nil
	case "memory":
		store := repository.NewMemoryStore()
		return &Repositories{
			Messages:      store.Messages(),
			Conversations: store.Conversations(),
			Users:         user.NewMemoryRepository(),
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func ProvideMediaStorage(cfg *config.Config, mongoClient *dbmongo.MongoClient) media.Storage {
	if cfg.Media.Driver == "gridfs" {
		return dbmongo.NewMediaStorage(mongoClient)
	}
	return media.NewMemoryStorage()
}

func ProvideTokenManager(cfg *config.Config, log zerolog.Logger) *common.TokenManager {
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		log.Warn().Msg("JWT_SECRET not set, using the development secret")
		secret = devJWTSecret
	}
	return common.NewTokenManager(secret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
}

func ProvidePasswordHasher(cfg *config.Config) (*common.PasswordHasher, error) {
	return common.NewPasswordHasher(cfg.Auth.BcryptCost)
}

func ProvideUserService(
	repos *Repositories,
	tokens *common.TokenManager,
	passwords *common.PasswordHasher,
	log zerolog.Logger,
) *user.Service {
	return user.NewService(repos.Users, tokens, passwords, logging.Component(log, "user"))
}

func ProvideGuard(cfg *config.Config) *guard.Guard {
	return guard.New(guard.Policy{
		RequireMembershipToReact: cfg.Chat.RequireMembershipToReact,
		ProtectGroupAdmin:        cfg.Chat.ProtectGroupAdmin,
	})
}

func ProvideHub(log zerolog.Logger) *hub.Hub {
	return hub.New(logging.Component(log, "hub"))
}

func ProvideConversationService(
	repos *Repositories,
	identities common.IdentityResolver,
	g *guard.Guard,
	h *hub.Hub,
	log zerolog.Logger,
) service.ConversationService {
	return service.NewConversationService(repos.Conversations, identities, g, h, logging.Component(log, "conversations"))
}

func ProvideMessageService(
	repos *Repositories,
	convs service.ConversationService,
	g *guard.Guard,
	projector *service.Projector,
	h *hub.Hub,
	log zerolog.Logger,
) service.MessageService {
	return service.NewMessageService(repos.Messages, convs, g, projector, h, logging.Component(log, "messages"))
}

func ProvideQueryService(cfg *config.Config, repos *Repositories, g *guard.Guard, projector *service.Projector) service.QueryService {
	return service.NewQueryService(repos.Messages, repos.Conversations, g, projector, cfg.Chat.SearchLimit)
}

func ProvideChatHandler(
	messages service.MessageService,
	convs service.ConversationService,
	queries service.QueryService,
	projector *service.Projector,
	log zerolog.Logger,
) *handler.ChatHandler {
	return handler.NewChatHandler(messages, convs, queries, projector, logging.Component(log, "chat_http"))
}

func ProvideStreamHandler(
	cfg *config.Config,
	h *hub.Hub,
	auth common.Authenticator,
	messages service.MessageService,
	queries service.QueryService,
	log zerolog.Logger,
) *handler.StreamHandler {
	limiter := common.NewLimiterPool(cfg.Chat.SendRatePerSecond, cfg.Chat.SendBurst)
	opts := handler.StreamOptions{
		SessionBuffer:           cfg.Chat.SessionBuffer,
		RequireMembershipToJoin: cfg.Chat.RequireMembershipToJoin,
	}
	return handler.NewStreamHandler(h, auth, messages, queries, limiter, opts, logging.Component(log, "stream"))
}

func ProvideUploader(cfg *config.Config, storage media.Storage) *media.Uploader {
	return media.NewUploader(storage, cfg.Upload, cfg.Server.MediaBaseURL)
}

func ProvideUploadHandler(uploader *media.Uploader, log zerolog.Logger) *media.UploadHandler {
	return media.NewUploadHandler(uploader, logging.Component(log, "upload"))
}

func ProvideMediaServer(storage media.Storage, log zerolog.Logger) *media.HTTPServer {
	return media.NewHTTPServer(storage, logging.Component(log, "media"))
}

func ProvideUserHandler(users *user.Service, uploader *media.Uploader, log zerolog.Logger) *user.Handler {
	return user.NewHandler(users, uploader, logging.Component(log, "user_http"))
}

// ProvideRouter mounts every HTTP surface. Register and login sit on the root
// router; everything else under /api requires a bearer token.
func ProvideRouter(
	log zerolog.Logger,
	auth common.Authenticator,
	chatHandler *handler.ChatHandler,
	stream *handler.StreamHandler,
	userHandler *user.Handler,
	uploads *media.UploadHandler,
	mediaServer *media.HTTPServer,
) http.Handler {
	root := mux.NewRouter()
	root.Use(corsMiddleware)
	root.Use(requestLogger(logging.Component(log, "http")))

	root.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)
	root.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	mediaServer.RegisterRoutes(root)

	api := root.PathPrefix("/api").Subrouter()
	userHandler.RegisterRoutes(root, api)
	api.Use(common.AuthMiddleware(auth))
	uploads.RegisterRoutes(api)
	handler.RegisterRoutes(root, api, chatHandler, stream)

	return root
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// the live channel hijacks the connection
			if r.URL.Path == "/ws" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	common.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "gochat"})
}
