package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/programacion-segura/secure-api/internal/api"
	"github.com/programacion-segura/secure-api/internal/core/ports"
	"github.com/programacion-segura/secure-api/internal/core/service"
	"github.com/programacion-segura/secure-api/internal/infrastructure/audit"
	"github.com/programacion-segura/secure-api/internal/infrastructure/db/mongo"
	"github.com/programacion-segura/secure-api/internal/infrastructure/db/redis"
	"github.com/programacion-segura/secure-api/internal/infrastructure/db/sqlstore"
	"github.com/programacion-segura/secure-api/internal/infrastructure/http/handlers"
	"github.com/programacion-segura/secure-api/internal/infrastructure/memory"
	"github.com/programacion-segura/secure-api/internal/infrastructure/password"
	"github.com/programacion-segura/secure-api/internal/infrastructure/token"
	"github.com/programacion-segura/secure-api/internal/pkg/config"
)

// app owns every long-lived dependency of the server.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	db    *sqlx.DB
	mongo *mongodriver.Client
	redis *goredis.Client

	auth         *service.AuthService
	resolver     *service.Resolver
	users        ports.UserService
	vulns        *service.VulnerabilityService
	limiter      ports.RateLimiter
	healthChecks []handlers.Dependency
}

func openStore(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	return sqlstore.Connect(ctx, sqlstore.Config{
		Driver:       cfg.DB.Driver,
		DSN:          cfg.DB.DSN,
		MaxOpenConns: cfg.DB.MaxOpenConns,
	})
}

// newApp connects the stores, applies migrations and builds the services.
// Mongo and Redis are optional; without Redis the denylist and limiter are
// kept in process memory.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.db, err = openStore(ctx, cfg); err != nil {
		return nil, err
	}
	if err = sqlstore.Migrate(ctx, a.db, log); err != nil {
		return nil, err
	}
	a.healthChecks = append(a.healthChecks, handlers.SQLDependency(a.db))

	sinks := audit.Tee{audit.NewLogSink(log)}
	if cfg.Mongo.URI != "" {
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: serviceName})
		if err != nil {
			return nil, err
		}
		a.mongo = client
		auditRepo := mongo.NewAuditRepository(db)
		if err := auditRepo.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		sinks = append(sinks, auditRepo)
		a.healthChecks = append(a.healthChecks, handlers.MongoDependency(db))
		log.Info().Str("database", cfg.Mongo.Database).Msg("audit records mirrored to mongo")
	}

	var denylist ports.TokenDenylist
	if cfg.Redis.Addr != "" {
		client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return nil, err
		}
		a.redis = client
		denylist = redis.NewDenylist(client)
		a.limiter = redis.NewRateLimiter(client)
		a.healthChecks = append(a.healthChecks, handlers.RedisDependency(client))
	} else {
		log.Warn().Msg("REDIS_ADDR not set, revocations and login limits are local to this process")
		denylist = memory.NewDenylist()
		a.limiter = memory.NewRateLimiter()
	}

	secret, err := signingKey(cfg, log)
	if err != nil {
		return nil, err
	}
	codec, err := token.NewCodec(secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	if err != nil {
		return nil, err
	}

	users := sqlstore.NewUserRepository(a.db)
	authz := service.NewAuthorizer()
	auditor := service.NewAuditor(sinks, log)

	a.auth = service.NewAuthService(users, password.NewHasher(password.DefaultParams), codec, denylist, log)
	a.resolver = service.NewResolver(codec, denylist, users, log)
	a.users = service.NewUserService(users, authz, auditor, log)
	a.vulns = service.NewVulnerabilityService(sqlstore.NewVulnerabilityRepository(a.db), authz, auditor, log)
	return a, nil
}

// signingKey returns the configured secret or, outside production, a random
// key that dies with the process.
func signingKey(cfg *config.Config, log zerolog.Logger) ([]byte, error) {
	if cfg.JWT.Secret != "" {
		return []byte(cfg.JWT.Secret), nil
	}
	if cfg.IsProduction() {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	buf := make([]byte, config.MinSecretLength)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	log.Warn().Msg("JWT_SECRET not set, using an ephemeral key; tokens will not survive a restart")
	return []byte(hex.EncodeToString(buf)), nil
}

func (a *app) routerDeps() api.Dependencies {
	return api.Dependencies{
		Auth:            a.auth,
		Users:           a.users,
		Vulnerabilities: a.vulns,
		Resolver:        a.resolver,
		LoginLimiter:    a.limiter,
		LoginLimit:      a.cfg.Login.RateLimit,
		LoginWindow:     a.cfg.Login.RateWindow,
		AllowedOrigins:  a.cfg.AllowedOrigins,
		HealthChecks:    a.healthChecks,
		Log:             a.log,
	}
}

// bootstrapAdmin creates the first admin from ADMIN_* when none exists.
func (a *app) bootstrapAdmin(ctx context.Context, username, email, pass string) error {
	if pass == "" {
		a.log.Info().Msg("ADMIN_PASSWORD not set, skipping admin bootstrap")
		return nil
	}
	user, created, err := a.auth.BootstrapAdmin(ctx, username, email, pass)
	if err != nil {
		return err
	}
	if !created {
		a.log.Debug().Msg("an admin already exists, bootstrap skipped")
		return nil
	}
	a.log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("admin account ready")
	return nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("redis close failed")
		}
	}
	if a.mongo != nil {
		if err := mongo.Disconnect(a.mongo, 5*time.Second); err != nil {
			a.log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn().Err(err).Msg("store close failed")
		}
	}
}
