package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"rowhub.org/internal/auth"
	"rowhub.org/internal/httpapi"
	"rowhub.org/internal/mail"
	"rowhub.org/internal/obs"
	"rowhub.org/internal/perf"
	"rowhub.org/internal/roster"
	"rowhub.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	// Local development convenience; a missing .env file is not an error.
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	if os.Getenv("ROWHUB_AUTH_SECRET") == "" {
		log.Fatal("ROWHUB_AUTH_SECRET is required")
	}

	// Storage: Postgres when a DSN is configured, in-memory otherwise.
	var (
		rosterStore roster.Store
		testStore   perf.Store
		tokenStore  auth.ResetTokenStore
		readyProbe  httpapi.ReadyProbe
		closeStore  = func() {}
	)
	if dsn := os.Getenv("ROWHUB_PG_DSN"); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		rosterStore = store
		testStore = store.Perf()
		tokenStore = store.ResetTokens()
		readyProbe = httpapi.ReadyProbe{DB: store.DB()}
		closeStore = func() { _ = store.Close() }
	} else {
		log.Print("ROWHUB_PG_DSN not set, using in-memory storage")
		rosterStore = roster.NewMemory()
		testStore = perf.NewMemory()
		tokenStore = auth.NewMemoryResetTokens()
	}
	defer closeStore()

	var rosterOpts []roster.ServiceOption
	if email := os.Getenv("ROWHUB_BOOTSTRAP_EMAIL"); email != "" {
		rosterOpts = append(rosterOpts, roster.WithBootstrapEmail(email))
	}
	rosterSvc := roster.NewService(rosterStore, rosterOpts...)
	perfSvc := perf.NewService(testStore, rosterStore, rosterSvc.Engine())
	recovery := auth.NewPasswordRecovery(
		httpapi.NewAccountDirectory(rosterStore),
		tokenStore,
		mail.LogSender{},
		auth.NewRecoveryLimiter(),
	)

	var apiOpts []httpapi.Option
	if ttl := os.Getenv("ROWHUB_TOKEN_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			log.Fatalf("parse ROWHUB_TOKEN_TTL: %v", err)
		}
		apiOpts = append(apiOpts, httpapi.WithTokenTTL(d))
	}
	api := httpapi.New(readyProbe, version, rosterSvc, perfSvc, recovery, apiOpts...)

	addr := os.Getenv("ROWHUB_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting rowhub-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
