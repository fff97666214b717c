package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/rivalchat/internal/profile"
	"github.com/hrygo/rivalchat/plugin/ai/roleplay"
	"github.com/hrygo/rivalchat/plugin/ai/timeout"
	ratelimit "github.com/hrygo/rivalchat/server/middleware"
	apiv1 "github.com/hrygo/rivalchat/server/router/api/v1"
	"github.com/hrygo/rivalchat/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiV1      *apiv1.APIV1Service
}

func NewServer(_ context.Context, profile *profile.Profile, store *store.Store, session *roleplay.Session, completer roleplay.Completer) (*Server, error) {
	s := &Server{
		Store:   store,
		Profile: profile,
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.RequestID())
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.CORS())
	echoServer.Use(middleware.BodyLimit("1M"))
	if profile.IsDev() {
		echoServer.Use(middleware.Logger())
	}
	s.echoServer = echoServer

	// Register healthz endpoint.
	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	limiter := ratelimit.NewRateLimiter(profile.RateLimit, profile.RateBurst)
	s.apiV1 = apiv1.NewAPIV1Service(profile, store, session, completer)
	s.apiV1.RegisterRoutes(echoServer, limiter.Middleware())

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}

	go func() {
		s.echoServer.Listener = listener
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	slog.Info("server started", "address", listener.Addr().String(), "mode", s.Profile.Mode, "driver", s.Profile.Driver)
	return nil
}

// Shutdown stops accepting requests, drains in-flight turns for up to timeout.ShutdownTimeout and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, timeout.ShutdownTimeout)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
	slog.Info("rivalchat stopped properly", "at", time.Now().Format(time.RFC3339))
}
