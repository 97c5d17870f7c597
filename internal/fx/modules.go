package fx

import (
	"daebot/internal/blizzard"
	"daebot/internal/cache"
	"daebot/internal/config"
	"daebot/internal/csvlog"
	"daebot/internal/database"
	"daebot/internal/logger"
	"daebot/internal/raiderio"
	"daebot/internal/repository"
	"daebot/internal/server"
	"daebot/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	logger.Module,
	fx.Provide(config.Load),
	database.Module,
	cache.Module,
	csvlog.Module,
	// repos
	fx.Provide(repository.NewRunRepository),
	fx.Provide(repository.NewSyncRepository),
	// upstream clients
	raiderio.Module,
	blizzard.Module,
	// svc
	service.Module,
	// server
	server.Module,
)
