package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic/internal/config"
	"github.com/clinicdesk/clinic/internal/domain/identity"
	"github.com/clinicdesk/clinic/internal/domain/labreport"
	"github.com/clinicdesk/clinic/internal/domain/prescribing"
	"github.com/clinicdesk/clinic/internal/platform/auth"
	"github.com/clinicdesk/clinic/internal/platform/db"
	"github.com/clinicdesk/clinic/internal/platform/middleware"
	"github.com/clinicdesk/clinic/internal/platform/mongodb"
	"github.com/clinicdesk/clinic/internal/platform/redis"
	"github.com/clinicdesk/clinic/internal/platform/storage"
)

const version = "0.1.0"

// stores holds the repositories of one backend and how to release them.
type stores struct {
	patients      identity.PatientRepository
	prescriptions prescribing.Repository
	labReports    labreport.Store
	cards         identity.CardAllocator
	health        db.Check
	cacheHealth   *db.Check
	closers       []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	st := &stores{}

	switch cfg.Backend() {
	case storage.BackendPostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		st.patients = identity.NewPatientRepoPG(pool)
		st.prescriptions = prescribing.NewRepoPG(pool)
		st.labReports = labreport.NewPostgresStore(pool)
		st.health = db.PostgresCheck(pool)
		logger.Info().Msg("connected to postgres")

	case storage.BackendMongo:
		client, database, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = client.Disconnect(context.Background()) })
		if err := identity.EnsurePatientIndexes(ctx, database); err != nil {
			st.Close()
			return nil, err
		}
		if err := prescribing.EnsureIndexes(ctx, database); err != nil {
			st.Close()
			return nil, err
		}
		st.patients = identity.NewPatientRepoMongo(database)
		st.prescriptions = prescribing.NewRepoMongo(database)
		st.labReports = labreport.NewMongoStore(database)
		st.health = mongodb.Check(client)
		logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongo")

	case storage.BackendMemory:
		patients := identity.NewMemoryPatientRepo()
		prescriptions := prescribing.NewMemoryRepo()
		st.patients = patients
		st.prescriptions = prescriptions
		st.labReports = labreport.NewMemoryStore(prescriptions, patients)
		st.health = db.Check{Backend: string(storage.BackendMemory)}
		logger.Warn().Msg("using in-memory store; data is lost on restart")

	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}

	if cfg.CardAllocator == "redis" {
		rdb, err := redis.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = rdb.Close() })
		st.cards = identity.NewRedisCardAllocator(rdb, st.patients)
		check := redis.Check(rdb)
		st.cacheHealth = &check
		logger.Info().Msg("card numbers allocated through redis")
	} else {
		st.cards = identity.NewStoreCardAllocator(st.patients)
	}

	return st, nil
}

func newEcho(cfg *config.Config, logger zerolog.Logger, st *stores) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: cfg.SigningKey(),
		Skipper:    auth.AuthSkipper,
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(st.health))
	if st.cacheHealth != nil {
		e.GET("/health/cache", db.HealthHandler(*st.cacheHealth))
	}

	api := e.Group("/api/v1")

	identitySvc := identity.NewService(st.patients, st.cards)
	identity.NewHandler(identitySvc).RegisterRoutes(api)

	prescribingSvc := prescribing.NewService(st.prescriptions, st.patients)
	prescribing.NewHandler(prescribingSvc).RegisterRoutes(api)

	engine := labreport.NewEngine(st.labReports)
	mutator := labreport.NewMutator(st.prescriptions, st.patients)
	labreport.NewHandler(engine, mutator).RegisterRoutes(api)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := newLogger(nil, os.Stdout)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg, os.Stdout)

	ctx := context.Background()
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open store")
	}
	defer st.Close()

	e := newEcho(cfg, logger, st)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("backend", cfg.StoreBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
