/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/Seednode/pairbox/transport"
)

const (
	timeout time.Duration = 10 * time.Second

	qrSize = 320
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

// joinCommand tells a guest how to take the given seat.
func joinCommand(cfg *Config, code string, seat int) string {
	cmd := fmt.Sprintf("pairbox join %s --seat %d", code, seat)
	if cfg.transport == transportWebSocket {
		cmd += " --server " + cfg.baseURL()
	} else {
		cmd += " --transport nats --nats-url " + cfg.natsURL
	}
	return cmd
}

// joinText lists the join command for every remote seat.
func joinText(cfg *Config, code string, seats []int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Match code: %s\n\n", code)
	for _, seat := range seats {
		fmt.Fprintf(&sb, "Seat %d: %s\n", seat, joinCommand(cfg, code, seat))
	}

	return sb.String()
}

func text(cfg *Config, log *zap.Logger, name string, body func() string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte(body()))
		if err != nil {
			log.Debug("write failed", zap.String("page", name), zap.Error(err))
			return
		}

		log.Debug("served",
			zap.String("page", name),
			zap.Int("bytes", written),
			zap.String("remote", realIP(r)),
			zap.Duration("took", time.Since(startTime).Round(time.Microsecond)),
		)
	}
}

// serveQR draws the address of the join page, as seen by the requester.
func serveQR(cfg *Config, log *zap.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		target := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr") + "/join"

		png, err := qrcode.Encode(target, qrcode.Medium, qrSize)
		if err != nil {
			log.Warn("qr generation failed", zap.Error(err))
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(cfg, w)

		_, _ = w.Write(png)
	}
}

// newRouter serves the host side of a match. acceptor is nil when seats
// connect some other way.
func newRouter(cfg *Config, log *zap.Logger, acceptor *transport.Acceptor, join string) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		log.Error("handler panicked", zap.Any("panic", i), zap.String("path", r.URL.Path))

		securityHeaders(cfg, w)
		http.Error(w, "An error has occurred. Please try again.", http.StatusInternalServerError)
	}

	mux.GET(cfg.prefix+"/healthz", text(cfg, log, "healthz", func() string { return "Ok\n" }))

	mux.GET(cfg.prefix+"/version", text(cfg, log, "version", func() string { return "pairbox v" + releaseVersion + "\n" }))

	mux.GET(cfg.prefix+"/join", text(cfg, log, "join", func() string { return join }))

	mux.GET(cfg.prefix+"/qr", serveQR(cfg, log))

	if acceptor != nil {
		mux.GET(cfg.prefix+transport.Route, acceptor.Handle)
	}

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	return mux
}

// serve runs the listener until ctx ends.
func serve(ctx context.Context, cfg *Config, log *zap.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           handler,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
		ErrorLog:          zap.NewStdLog(log),
	}

	errs := make(chan error, 1)

	go func() {
		log.Info("listening", zap.String("url", fmt.Sprintf("%s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)))

		var err error
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
