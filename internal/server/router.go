// Package server assembles the HTTP surface of the daemon: routes,
// middleware, TLS, and graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/provenix-dev/provenix-store/internal/api"
)

// Server owns the gin engine and the listener lifecycle.
type Server struct {
	router *gin.Engine
	logger *slog.Logger
	cert   *tls.Certificate

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
}

// New wires the route table. /token and POST /users are public; everything
// else requires a bearer token.
func New(h *api.Handler, verifier api.TokenVerifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), api.RequestID(), api.RequestLogger(logger), api.CORS())

	r.POST("/token", h.Login)
	r.POST("/users", h.CreateUser)

	authorized := r.Group("/", api.RequireAuth(verifier, logger))
	{
		authorized.GET("/users/:id", h.GetUser)
		authorized.PUT("/users/:id", h.UpdateUser)
		authorized.DELETE("/users/:id", h.DeleteUser)
		authorized.GET("/audit/users/:id", h.GetAudit)
		authorized.POST("/audit/users/:id/restore/:version", h.RestoreUser)
	}

	return &Server{router: r, logger: logger}
}

// SetCertificate sets the TLS certificate for the listener.
func (s *Server) SetCertificate(cert tls.Certificate) {
	s.cert = &cert
}

// Handler exposes the underlying engine for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Listen serves HTTP (or HTTPS when a certificate is set) on the port until
// Stop is called. Passing "0" picks a random port; see Addr.
func (s *Server) Listen(port string) error {
	var listener net.Listener
	var err error

	if s.cert != nil {
		config := &tls.Config{Certificates: []tls.Certificate{*s.cert}}
		listener, err = tls.Listen("tcp", ":"+port, config)
	} else {
		listener, err = net.Listen("tcp", ":"+port)
	}
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = srv
	s.mu.Unlock()

	if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound address once Listen has started, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop drains in-flight requests and closes the listener.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
