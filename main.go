package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"smartid-server-go/auth"
	"smartid-server-go/config"
	"smartid-server-go/db"
	"smartid-server-go/handlers"
	"smartid-server-go/logger"
)

func main() {
	conf, err := config.Load(".")
	if err != nil {
		logger.New("API : ", logger.Options{}).Fatal("loading config", err)
	}

	host, _ := os.Hostname()
	log := logger.New("API : ", logger.Options{
		Token:       conf.RollbarToken,
		Environment: conf.Env,
		Host:        host,
	})
	defer log.Close()

	ctx := context.Background()

	// Open the configured store
	store, err := openStore(ctx, conf, log)
	if err != nil {
		log.Fatal("opening "+conf.StoreDriver+" store", err)
	}
	defer store.Close()

	// Fill an empty store with demo data
	if conf.Seed {
		if err := db.CheckAndSeed(ctx, store, log); err != nil {
			log.Error("seeding store", err)
		}
	}

	if !conf.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	jwtService := auth.NewJWTService(conf.JWT.Secret, conf.JWT.Issuer, conf.JWT.AccessTTL, conf.JWT.RefreshTTL)
	handlers.NewAPIHandler(store, jwtService, log).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    conf.Server.Address,
		Handler: router,
	}
	go func() {
		log.Info("starting server on " + conf.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to run server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", err)
	}
}

func openStore(ctx context.Context, conf *config.Config, log logger.Logger) (db.Store, error) {
	switch conf.StoreDriver {
	case config.DriverRedis:
		client, err := db.InitializeRedisClient(ctx, conf.Redis)
		if err != nil {
			return nil, err
		}
		log.Info("connected to redis at " + conf.Redis.Addr)
		return db.NewRedisService(client, log), nil
	case config.DriverPostgres:
		pg, err := db.OpenPostgres(ctx, conf.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		log.Info("connected to postgres")
		return pg, nil
	default:
		log.Warn("using in-memory store, data is lost on restart")
		return db.NewMemoryStore(), nil
	}
}
