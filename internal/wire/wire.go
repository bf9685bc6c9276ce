//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"gochat/internal/chat/service"
	"gochat/internal/common"
	"gochat/internal/user"
)

var storeSet = wire.NewSet(
	ProvideMongo,
	ProvideGorm,
	ProvideRepositories,
	ProvideMediaStorage,
)

var identitySet = wire.NewSet(
	ProvideTokenManager,
	ProvidePasswordHasher,
	ProvideUserService,
	wire.Bind(new(common.Authenticator), new(*user.Service)),
	wire.Bind(new(common.IdentityResolver), new(*user.Service)),
)

var chatSet = wire.NewSet(
	ProvideGuard,
	ProvideHub,
	service.NewProjector,
	ProvideConversationService,
	ProvideMessageService,
	ProvideQueryService,
	ProvideChatHandler,
	ProvideStreamHandler,
)

var httpSet = wire.NewSet(
	ProvideUploader,
	ProvideUploadHandler,
	ProvideMediaServer,
	ProvideUserHandler,
	ProvideRouter,
)

func InitializeApplication() (*Application, func(), error) {
	wire.Build(
		ProvideConfig,
		ProvideLogger,
		storeSet,
		identitySet,
		chatSet,
		httpSet,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil, nil
}

// InitializeMediaServer builds the standalone media server.
func InitializeMediaServer() (*MediaApplication, func(), error) {
	wire.Build(
		ProvideConfig,
		ProvideLogger,
		ProvideMongo,
		ProvideMediaStorage,
		ProvideMediaServer,
		wire.Struct(new(MediaApplication), "*"),
	)
	return nil, nil, nil
}
