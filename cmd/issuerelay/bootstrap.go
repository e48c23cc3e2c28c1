package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/issuerelay/internal/api"
	"github.com/charlesng35/issuerelay/internal/app"
	"github.com/charlesng35/issuerelay/internal/app/maintenance"
	iauth "github.com/charlesng35/issuerelay/internal/auth"
	"github.com/charlesng35/issuerelay/internal/bot"
	"github.com/charlesng35/issuerelay/internal/cache"
	"github.com/charlesng35/issuerelay/internal/database"
	"github.com/charlesng35/issuerelay/internal/discord"
	"github.com/charlesng35/issuerelay/internal/github"
	"github.com/charlesng35/issuerelay/internal/middleware"
	"github.com/charlesng35/issuerelay/internal/monitoring"
	"github.com/charlesng35/issuerelay/internal/monitoring/checks"
	"github.com/charlesng35/issuerelay/pkg/logger"
)

const (
	// Password exchange attempts per client IP.
	tokenRateLimit  = 10
	tokenRateWindow = time.Minute

	databaseCheckTimeout = 2 * time.Second
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB           *gorm.DB
	Cache        *cache.Service
	Monitoring   *monitoring.Module
	Gateway      *discord.Gateway
	Cleaner      *maintenance.Cleaner
	TokenLimiter *middleware.RateLimiter
	Router       *gin.Engine
}

// bootstrapRuntime initialises the database, the issue cache, the chat integration and
// the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			if shutdownErr := stack.Shutdown(context.Background()); shutdownErr != nil {
				log.Warn("partial bootstrap cleanup failed", zap.Error(shutdownErr))
			}
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := cfg.Discord.Validate(); err != nil {
		return nil, err
	}

	stack.Monitoring, err = monitoring.NewModule(monitoring.Options{Version: version})
	if err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	monitoring.SetModule(stack.Monitoring)

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	store, err := cache.NewDatabaseStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise cache store: %w", err)
	}
	stack.Cache, err = cache.NewService(store, cfg.Cache.ServiceOptions()...)
	if err != nil {
		return nil, fmt.Errorf("initialise issue cache: %w", err)
	}

	ghClient, err := github.NewClient(cfg.GitHub.ClientConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise github client: %w", err)
	}

	resolver, err := bot.NewResolver(stack.Cache, ghClient)
	if err != nil {
		return nil, err
	}

	var (
		session *discordgo.Session
		sender  bot.MessageSender
	)
	if cfg.Discord.Enabled {
		session, err = discord.NewSession(cfg.Discord.SessionConfig())
		if err != nil {
			return nil, fmt.Errorf("initialise discord session: %w", err)
		}
		rest, restErr := discord.NewREST(session)
		if restErr != nil {
			return nil, fmt.Errorf("initialise discord rest client: %w", restErr)
		}
		sender = rest
	}

	relay, err := bot.New(resolver, sender, cfg.Bot.Options())
	if err != nil {
		return nil, err
	}

	var interactions *discord.InteractionHandler
	if cfg.Discord.Enabled {
		interactions, err = discord.NewInteractionHandler(cfg.Discord.PublicKey, relay)
		if err != nil {
			return nil, err
		}
		stack.Gateway, err = discord.NewGateway(session, relay, discord.GatewayOptions{})
		if err != nil {
			return nil, err
		}
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}
	if !jwtSvc.PasswordLoginEnabled() {
		log.Info("auth.admin_password_hash not set; mint API tokens with `issuerelay token`")
	}

	stack.Cleaner = maintenance.NewCleaner(stack.Cache, maintenance.WithPurgeSchedule(cfg.Cache.PurgeSchedule))
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	if cfg.Monitoring.Health.Enabled {
		registerHealthChecks(stack, cfg)
	}

	stack.TokenLimiter = middleware.NewRateLimiter(tokenRateLimit, tokenRateWindow)

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:       cfg,
		JWT:          jwtSvc,
		Cache:        stack.Cache,
		Issues:       relay,
		Interactions: interactions,
		Monitoring:   stack.Monitoring,
		TokenLimiter: stack.TokenLimiter,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func registerHealthChecks(stack *runtimeStack, cfg *app.Config) {
	health := stack.Monitoring.Health()
	health.RegisterReadiness(checks.Database(stack.DB, databaseCheckTimeout))
	health.RegisterReadiness(checks.Cache(0))
	health.RegisterReadiness(checks.Maintenance(cfg.Cache.PurgeSchedule))
	health.RegisterReadiness(checks.GitHub(0))
	if stack.Gateway != nil {
		health.RegisterReadiness(checks.Gateway(stack.Gateway, cfg.Discord.Enabled))
	} else {
		health.RegisterReadiness(checks.Gateway(nil, false))
	}
}

// Shutdown stops background jobs and releases resources. It is safe on a partially
// initialised stack.
func (s *runtimeStack) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}

	var errs error
	if s.Cleaner != nil {
		// Wait for a scheduled run in flight, then purge once more.
		select {
		case <-s.Cleaner.Stop().Done():
		case <-ctx.Done():
		}
		errs = multierr.Append(errs, s.Cleaner.RunOnce(ctx))
	}
	if s.TokenLimiter != nil {
		s.TokenLimiter.Stop()
	}
	if s.Cache != nil {
		s.Cache.Close()
	}
	if s.DB != nil {
		errs = multierr.Append(errs, database.Close(s.DB))
	}
	return errs
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ToDatabaseConfig()
	db, err := database.OpenAndMigrate(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}
