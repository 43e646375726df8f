// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpin "github.com/PraiseTechzw/solana-token-manager/internal/adapters/in/http"
	appcfg "github.com/PraiseTechzw/solana-token-manager/internal/infra/config"
	"github.com/PraiseTechzw/solana-token-manager/internal/platform/di"
)

func main() {
	ctx := context.Background()

	// ─────────────────────────────────────────────────────────────
	// Lightweight healthz first so PORT is LISTENed quickly
	// ─────────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// ─────────────────────────────────────────────────────────────
	// Config & DI container; keep /healthz even on failure
	// ─────────────────────────────────────────────────────────────
	port := os.Getenv("PORT")

	var cont *di.Container
	cfg, err := appcfg.Load()
	if err != nil {
		log.Printf("[boot] WARN: config load failed: %v (serving /healthz only)", err)
	} else {
		if cfg.Port != "" {
			port = cfg.Port
		}
		if c, err := di.NewContainer(ctx, cfg); err != nil {
			log.Printf("[boot] WARN: di init failed: %v (serving /healthz only)", err)
		} else {
			cont = c

			deps := cont.RouterDeps()
			if deps.FirebaseAuth == nil {
				log.Printf("[boot] RouterDeps.FirebaseAuth is NIL (auth disabled)")
			} else {
				log.Printf("[boot] RouterDeps.FirebaseAuth: %T", deps.FirebaseAuth)
			}

			// Attach app router under "/"
			mux.Handle("/", httpin.NewRouter(deps))
		}
	}

	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ─────────────────────────────────────────────────────────────
	// Graceful shutdown
	// in-flight workflow runs are drained after the listener stops
	// ─────────────────────────────────────────────────────────────
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		sig := <-c
		log.Printf("[boot] received signal: %v; shutting down...", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[boot] server shutdown error: %v", err)
		}
		close(idleConnsClosed)
	}()

	log.Printf("[boot] listening on :%s", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("[boot] server error: %v", err)
	}

	<-idleConnsClosed

	if cont != nil {
		log.Printf("[boot] draining in-flight runs...")
		cont.Close()
	}
	log.Printf("[boot] server stopped gracefully")
}
