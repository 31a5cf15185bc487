package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/alxayo/media-proxy/internal/bootstrap"
	"github.com/alxayo/media-proxy/internal/config"
	"github.com/alxayo/media-proxy/internal/dispatcher"
	"github.com/alxayo/media-proxy/internal/logger"
	"github.com/alxayo/media-proxy/internal/upstream"
)

func main() {
	logger.Init()
	log := logger.Logger().With("component", "cli")

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}

	client, err := upstream.NewClient(upstream.Config{
		ProxyURL:  cfg.Proxy,
		ProxyUser: cfg.ProxyUser,
		ProxyPass: cfg.ProxyPass,
		IPv4Only:  cfg.IPv4Only,
	})
	if err != nil {
		log.Error("failed to build outbound client", "error", err)
		os.Exit(2)
	}

	pool, err := ants.NewPool(256)
	if err != nil {
		log.Error("failed to build worker pool", "error", err)
		os.Exit(2)
	}
	defer pool.Release()

	d := dispatcher.New(client, cfg, pool)

	mux := http.NewServeMux()
	mux.HandleFunc("/sabr", d.ServeSabr)
	mux.HandleFunc("/ggpht/", func(w http.ResponseWriter, r *http.Request) {
		d.ServeImage(w, r, dispatcher.ImageSourceGgPht)
	})
	mux.HandleFunc("/vi/", func(w http.ResponseWriter, r *http.Request) {
		d.ServeImage(w, r, dispatcher.ImageSourceYtImg)
	})
	mux.HandleFunc("/", d.ServeHTTP)

	ln, err := bootstrap.Listen(cfg)
	if err != nil {
		log.Error("failed to acquire listener", "error", err)
		os.Exit(1)
	}

	server := &http.Server{Handler: mux}

	go func() {
		log.Info("media proxy listening", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", "error", err)
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("server stopped cleanly")
	case <-shutdownCtx.Done():
		log.Error("forced exit after timeout")
	}
}
