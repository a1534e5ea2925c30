package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulse/pkg/auth"
	"pulse/pkg/broker"
	"pulse/pkg/cache"
	"pulse/pkg/config"
	"pulse/pkg/database"
	"pulse/pkg/handlers"
	"pulse/pkg/hub"
	"pulse/pkg/repository"
	"pulse/pkg/repository/memory"
	"pulse/pkg/server"
	"pulse/pkg/services"
)

type stores struct {
	social        repository.SocialRepository
	notifications repository.NotificationRepository
	users         repository.UserRepository
	db            *sql.DB
}

func openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	if cfg.Storage == "memory" {
		log.Println("[PORTAL] Using in-memory storage")
		m := memory.New()
		return stores{social: m.Social(), notifications: m.Notifications(), users: m.Users()}, nil
	}

	db, err := database.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		return stores{}, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return stores{}, err
	}
	return stores{
		social:        repository.NewSocialRepository(db),
		notifications: repository.NewNotificationRepository(db),
		users:         repository.NewUserRepository(db),
		db:            db,
	}, nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[PORTAL] config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("[PORTAL] storage: %v", err)
	}
	if st.db != nil {
		defer st.db.Close()
	}

	rdb, err := broker.NewClient(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("[PORTAL] redis: %v", err)
	}
	defer rdb.Close()

	b := broker.New(rdb)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := b.Ping(pingCtx); err != nil {
		log.Printf("[PORTAL] Redis not reachable yet, live delivery degraded: %v", err)
	} else {
		log.Println("[PORTAL] Redis connected")
	}
	cancel()

	redisCache := cache.New(rdb)
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)

	notifications := services.NewNotificationService(st.notifications, b)
	social := services.NewSocialService(st.social, notifications, redisCache)
	tree := services.NewCommentTree(st.social, st.users, redisCache)

	wsHub := hub.New(b, verifier, cfg.Hub.WriteTimeout)

	app := server.NewApp("pulse", cfg.Server.AllowOrigins)
	server.Routes{
		Social:             handlers.NewSocial(social, tree),
		Notifications:      handlers.NewNotifications(notifications),
		Hub:                wsHub,
		Verifier:           verifier,
		MutationsPerMinute: cfg.Server.MutationsPerMinute,
	}.Register(app)

	go func() {
		<-ctx.Done()
		log.Println("[PORTAL] Shutting down...")
		wsHub.Close()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("[PORTAL] shutdown: %v", err)
		}
	}()

	addr := "0.0.0.0:" + cfg.Server.Port
	log.Printf("[PORTAL] WebSocket: ws://<domain>/ws/notifications?token=<jwt>")
	log.Printf("[PORTAL] Server starting on %s", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("[PORTAL] Failed to start: %v", err)
	}
}
