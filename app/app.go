package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"jobber/auth-api/db"
	"jobber/auth-api/internal"
	"jobber/auth-api/internal/broker"
	"jobber/auth-api/internal/search"
	"jobber/auth-api/internal/service"
	"jobber/auth-api/internal/storage"
	"jobber/auth-api/internal/store"
	"jobber/auth-api/pkg/security"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

// App owns every long lived resource of the process
type App struct {
	Router *gin.Engine
	Deps   *internal.Deps

	broker  *broker.Connection
	cleanup *cron.Cron
	redis   *redis.Client
}

// New connects to every backing service and builds the router. Whatever was
// opened before a failure is closed again.
func New(ctx context.Context) (_ *App, err error) {
	makeLogger(viper.GetString("app.log_level"))

	a := &App{Deps: &internal.Deps{}}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	gdb, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.Deps.DB = gdb

	a.broker, err = broker.Dial(viper.GetString("rabbitmq.endpoint"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq, %w", err)
	}

	var pictures storage.ProfileStorage = storage.Passthrough{}
	if viper.GetBool("storage.enabled") {
		r2, err := storage.NewR2(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage client, %w", err)
		}
		pictures = r2
	}

	es, err := search.NewES()
	if err != nil {
		return nil, err
	}

	paginator := search.NewPaginator(es, viper.GetString("elasticsearch.index"))

	esCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := paginator.CheckConnection(esCtx, 5*time.Second); err != nil {
		return nil, err
	}

	if err := paginator.EnsureIndex(esCtx); err != nil {
		return nil, err
	}
	a.Deps.Search = paginator

	a.Deps.Cache, err = a.cacheStore(ctx)
	if err != nil {
		return nil, err
	}

	credentials := store.New(gdb)
	a.Deps.Sessions = security.NewSessionSigner(viper.GetString("jwt.secret"))
	a.Deps.Lifecycle = service.NewLifecycle(service.LifecycleDeps{
		Store:     credentials,
		Hasher:    security.New(),
		Sessions:  a.Deps.Sessions,
		Events:    broker.NewPublisher(a.broker),
		Pictures:  pictures,
		ClientURL: viper.GetString("host.client_url"),
	})

	a.cleanup, err = service.TokenCleanup(viper.GetDuration("cleanup.interval"), credentials)
	if err != nil {
		return nil, err
	}

	a.Router = NewRouter(ctx, a.Deps)
	return a, nil
}

// cacheStore prefers redis when redis.addr is set and falls back to memory
func (a *App) cacheStore(ctx context.Context) (persist.CacheStore, error) {
	addr := viper.GetString("redis.addr")
	if addr == "" {
		zap.L().Debug("No redis.addr set, caching responses in memory")
		return persist.NewMemoryStore(time.Minute), nil
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("redis.password"),
	})

	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis, %w", err)
	}

	return persist.NewRedisStore(a.redis), nil
}

// Run serves until ctx is cancelled, then drains in flight requests
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(viper.GetInt("host.port")),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("Server starting", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	zap.L().Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// Close releases everything New opened. It is safe on a partly built App.
func (a *App) Close() {
	if a.cleanup != nil {
		<-a.cleanup.Stop().Done()
	}

	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			zap.L().Warn("Failed to close rabbitmq connection", zap.Error(err))
		}
	}

	if a.redis != nil {
		a.redis.Close()
	}

	if a.Deps != nil && a.Deps.DB != nil {
		if sqlDB, err := a.Deps.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	zap.L().Sync()
}

func makeLogger(level string) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
