package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"chat-client/internal/api"
	"chat-client/internal/cache"
	"chat-client/internal/chat"
	"chat-client/internal/config"
	"chat-client/internal/db"
	"chat-client/internal/handlers"
	"chat-client/internal/logging"
	"chat-client/internal/models"
	"chat-client/internal/observability"
	"chat-client/internal/rabbitmq"
	"chat-client/internal/realtime"
	"chat-client/internal/repositories"
	"chat-client/internal/services"
	"chat-client/internal/session"
	"chat-client/internal/telemetry"
	"chat-client/internal/tui"
)

func main() {
	cfg := config.Load()

	interactive := cfg.RoomID != 0
	logOut, closeLog := logWriter(interactive)
	defer closeLog()
	logger := logging.New(logOut, cfg.LogLevel, cfg.IsDevelopment() && !interactive)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Env)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	repo, closeRepo, err := openSessionRepo(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.SessionBackend).Msg("failed to open session storage")
	}
	defer closeRepo()

	store := session.NewStore(repo, logging.Component(logger, "session"))
	store.Init(ctx)

	gateway := api.NewGateway(cfg.APIBaseURL, store, logging.Component(logger, "api"), api.WithTimeout(cfg.RequestTimeout))
	queryCache := cache.New(logging.Component(logger, "cache"))

	publisher := rabbitmq.NewPublisher(cfg.EventsAMQPURL, cfg.EventsExchange, logging.Component(logger, "events"))
	defer publisher.Close()
	emitter := telemetry.NewEventEmitter(publisher, cfg.ServiceName, cfg.Env, logger)

	var transport realtime.Transport
	switch cfg.RealtimeDriver {
	case "amqp":
		transport = realtime.NewAMQPTransport(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPUsername, logging.Component(logger, "amqp"))
	default:
		transport = realtime.NewStompTransport(cfg.WSURL, logging.Component(logger, "stomp"))
	}
	channel := realtime.NewManager(transport, cfg.RealtimeDriver, logging.Component(logger, "realtime"))
	defer channel.Disconnect()

	controller := chat.NewController(gateway, store, channel, emitter, logging.Component(logger, "chat"))

	authService := services.NewAuthService(gateway, store, queryCache, emitter, logging.Component(logger, "auth"))
	authService.OnLogout(controller.Deactivate)
	groupService := services.NewGroupService(gateway, store, queryCache)
	memberService := services.NewMemberService(gateway, store, queryCache)
	postService := services.NewPostService(gateway, queryCache, emitter, store)

	if _, err := authService.Bootstrap(ctx); err != nil {
		logger.Warn().Err(err).Msg("load profile failed")
	}
	if _, ok := store.Credential(); !ok && cfg.LoginEmail != "" {
		me, err := authService.Login(ctx, models.LoginRequest{Email: cfg.LoginEmail, Password: cfg.LoginPassword})
		if err != nil {
			logger.Error().Err(err).Str("email", cfg.LoginEmail).Msg("login failed")
		} else if me != nil {
			logger.Info().Int64("member_id", me.MemberID).Str("nickname", me.Nickname).Msg("signed in")
		}
	}

	warmCache(ctx, logger, groupService, memberService, postService)

	status := handlers.NewStatusHandler(store, controller, channel)
	router := handlers.NewDebugRouter(cfg.ServiceName, status, store, emitter, cfg.DebugRoutes)
	srv := &http.Server{Addr: cfg.DebugAddr, Handler: router}
	go func() {
		logger.Info().Str("addr", cfg.DebugAddr).Msg("debug server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("debug server error")
		}
	}()

	if interactive {
		room := models.RoomRef{RoomID: cfg.RoomID, RoomType: cfg.RoomType}
		app := tui.NewApp(controller, store.MemberID, logging.Component(logger, "tui"))
		if err := app.Run(ctx, room); err != nil {
			logger.Error().Err(err).Msg("terminal ui error")
		}
	} else {
		<-ctx.Done()
	}

	logger.Info().Msg("shutting down")
	controller.Deactivate()

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("debug server shutdown failed")
	}
}

func openSessionRepo(ctx context.Context, cfg *config.Config) (repositories.SessionRepository, func(), error) {
	if cfg.SessionBackend == "redis" {
		repo, err := repositories.NewRedisSessionRepo(ctx, cfg.RedisURL, cfg.ServiceName)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	}

	database, err := db.Connect(cfg.SessionBackend, cfg.SessionDSN)
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewSessionRepo(database), func() { _ = database.Close() }, nil
}

// warmCache prefetches the lists a freshly opened client shows first.
func warmCache(ctx context.Context, logger zerolog.Logger, groups *services.GroupService, members *services.MemberService, posts *services.PostService) {
	if rooms, err := groups.PublicRooms(ctx); err != nil {
		logger.Warn().Err(err).Msg("prefetch group rooms failed")
	} else {
		logger.Debug().Int("count", len(rooms)).Msg("group rooms loaded")
	}

	if list, err := members.Members(ctx); err != nil {
		logger.Warn().Err(err).Msg("prefetch members failed")
	} else {
		logger.Debug().Int("count", len(list)).Msg("members loaded")
	}

	if page, err := posts.List(ctx, models.SortLatest, 0, 0); err != nil {
		logger.Warn().Err(err).Msg("prefetch posts failed")
	} else {
		logger.Debug().Int("count", len(page.Items)).Msg("posts loaded")
	}
}

// logWriter keeps the terminal free while the chat screen is up.
func logWriter(interactive bool) (io.Writer, func()) {
	if !interactive {
		return os.Stderr, func() {}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return io.Discard, func() {}
	}
	dir := filepath.Join(home, ".chat-client")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return io.Discard, func() {}
	}
	f, err := os.OpenFile(filepath.Join(dir, "client.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return io.Discard, func() {}
	}
	return f, func() { _ = f.Close() }
}
