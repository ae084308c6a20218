package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	echoapi "github.com/Shilpa0612/school-app-backend-sub003/apps/api/echo"
	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/chat"
	"github.com/Shilpa0612/school-app-backend-sub003/core/directory"
	"github.com/Shilpa0612/school-app-backend-sub003/core/moderation"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
	emailsvc "github.com/Shilpa0612/school-app-backend-sub003/services/email"
	livesvc "github.com/Shilpa0612/school-app-backend-sub003/services/live"
	logsvc "github.com/Shilpa0612/school-app-backend-sub003/services/logger"
	pushsvc "github.com/Shilpa0612/school-app-backend-sub003/services/push"
	"github.com/Shilpa0612/school-app-backend-sub003/storage/database"
	inmemdb "github.com/Shilpa0612/school-app-backend-sub003/storage/database/inmem"
	boiledrepos "github.com/Shilpa0612/school-app-backend-sub003/storage/database/sqlboiler"
	sqlxrepos "github.com/Shilpa0612/school-app-backend-sub003/storage/database/sqlx"
)

const shutdownNotice = "server restarting, please reconnect"

// repos is the storage picked by conf.Database.Engine.
type repos struct {
	users     user.Repository
	directory directory.Store
	chat      chat.Repository
	notifs    notification.Store
	devices   notification.DeviceStore
	close     func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := setUpStorage(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = store.close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var pushTransport notification.PushTransport
	if conf.Push.BaseURL != "" {
		pushTransport = pushsvc.NewHTTPTransport(conf.Push, logger)
	} else {
		pushTransport = pushsvc.NewConsoleTransport(logger)
	}

	registry := livesvc.NewRegistry(conf.Live.HeartbeatInterval, conf.Live.HeartbeatTimeout, logger)
	var relay *livesvc.Relay
	if conf.Live.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: conf.Live.RedisAddr, Password: conf.Live.RedisPassword})
		defer func() { _ = rdb.Close() }()
		relay = livesvc.NewRelay(rdb, conf.Live.RedisChannel, logger)
	}
	hub := livesvc.NewHub(registry, relay, logger)

	screener, err := moderation.NewScreener(conf.Moderation.BlockedTerms, conf.Moderation.CensorChar)
	if err != nil {
		logger.Fatal(fmt.Sprintf("building screener: %v", err), err)
	}

	resolver := directory.NewResolver(store.directory, logger)
	dispatcher := notification.NewDispatcher(store.notifs, store.devices, logger,
		notification.WithLive(hub),
		notification.WithPush(pushTransport, conf.Push.Timeout),
		notification.WithMail(mailSvc, store.users, conf.AppName),
		notification.WithWorkers(conf.Dispatch.Workers),
	)
	notifier := notification.NewNotifier(notification.NewAudience(resolver, store.users, logger), dispatcher, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Live Hub & API Service

	go func() {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("live hub stopped", err)
		}
	}()

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Users:      store.users,
		ChatSvc:    chat.NewService(store.chat, store.users, notifier, screener, logger),
		NotifSvc:   notification.NewService(store.notifs, store.devices, logger),
		Notifier:   notifier,
		Directory:  resolver,
		Live:       registry,
		Validate:   validate,
		Translator: translator,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// tell live clients to reconnect elsewhere, then stop accepting new ones
		registry.Shutdown(livesvc.ShutdownFrame(shutdownNotice))
		cancel()

		// give outstanding requests a deadline for completion
		sctx, scancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer scancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(sctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpStorage(ctx context.Context, conf *core.Config) (*repos, error) {
	if conf.Database.Engine == "memory" {
		db := inmemdb.Open()
		notifs := inmemdb.NewNotificationRepository(db)
		return &repos{
			users:     inmemdb.NewUserRepository(db),
			directory: inmemdb.NewDirectoryRepository(db),
			chat:      inmemdb.NewChatRepository(db),
			notifs:    notifs,
			devices:   notifs,
			close:     func() error { return nil },
		}, nil
	}

	db, err := setUpDB(ctx, conf)
	if err != nil {
		return nil, err
	}
	xdb := sqlxrepos.NewDB(db)
	notifs := boiledrepos.NewNotificationRepository(db)
	return &repos{
		users:     sqlxrepos.NewUserRepository(xdb),
		directory: sqlxrepos.NewDirectoryRepository(xdb),
		chat:      sqlxrepos.NewChatRepository(xdb),
		notifs:    notifs,
		devices:   notifs,
		close:     db.Close,
	}, nil
}

func setUpDB(ctx context.Context, conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
