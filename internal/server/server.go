// Package server exposes the managed domain's records over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/alidns-manager/internal/alidns/rpc"
	"github.com/yuriy-kovalchuk/alidns-manager/internal/dns"
)

// Server serves the /dns routes for one domain.
type Server struct {
	dns    dns.Provider
	domain string
	log    logr.Logger
	engine *gin.Engine
}

// Options configures a Server.
type Options struct {
	Domain         string
	AllowedOrigins []string
}

// New builds the router. Requests are served by Handler or Run.
func New(log logr.Logger, provider dns.Provider, opts Options) *Server {
	s := &Server{
		dns:    provider,
		domain: opts.Domain,
		log:    log,
		engine: gin.New(),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())
	if len(opts.AllowedOrigins) > 0 {
		s.engine.Use(cors.New(cors.Config{
			AllowOrigins: opts.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
			MaxAge:       12 * time.Hour,
		}))
	}

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/dns")
	{
		api.GET("", s.listAll)
		api.GET("/:rr", s.getHost)
		api.POST("/:rr", s.setHost)
		api.DELETE("/:rr", s.deleteHost)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr, "domain", s.domain)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.log.Info("stopped")
	return nil
}

// requestLogger logs each request and puts a request-scoped logger into the
// request context.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		log := s.log.WithValues("method", c.Request.Method, "path", c.Request.URL.Path)
		c.Request = c.Request.WithContext(logr.NewContext(c.Request.Context(), log))

		c.Next()

		log.Info("request", "status", c.Writer.Status(), "duration", time.Since(start).String())
	}
}

func (s *Server) listAll(c *gin.Context) {
	list, err := s.dns.ListAll(c.Request.Context(), s.domain)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getHost(c *gin.Context) {
	rr, ok := s.rrParam(c)
	if !ok {
		return
	}

	list, err := s.dns.ListForHost(c.Request.Context(), dns.FullName(rr, s.domain), s.domain)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type setRequest struct {
	IP string `json:"ip" form:"ip"`
}

func (s *Server) setHost(c *gin.Context) {
	rr, ok := s.rrParam(c)
	if !ok {
		return
	}

	// The address comes from the JSON body, or the query string when the
	// body is absent or has no ip.
	var req setRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IP == "" {
		req.IP = c.Query("ip")
	}
	if req.IP == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing ip in body or query"})
		return
	}
	addr, err := netip.ParseAddr(req.IP)
	if err != nil || !addr.Is4() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid IPv4 address %q", req.IP)})
		return
	}

	host := dns.FullName(rr, s.domain)
	logr.FromContextOrDiscard(c.Request.Context()).Info("updating host", "host", host, "ip", addr.String())

	id, err := dns.ReplaceAddress(c.Request.Context(), s.dns, rr, s.domain, addr)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"host": host, "ip": addr.String(), "record_id": id})
}

func (s *Server) deleteHost(c *gin.Context) {
	rr, ok := s.rrParam(c)
	if !ok {
		return
	}

	n, err := s.dns.DeleteForHost(c.Request.Context(), rr, s.domain)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"host": dns.FullName(rr, s.domain), "deleted": n})
}

func (s *Server) rrParam(c *gin.Context) (string, bool) {
	rr := c.Param("rr")
	if rr == "" || strings.ContainsAny(rr, " \t/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid record name %q", rr)})
		return "", false
	}
	return rr, true
}

// writeError maps core errors to HTTP responses. Provider codes and
// messages are passed through unchanged.
func (s *Server) writeError(c *gin.Context, err error) {
	logr.FromContextOrDiscard(c.Request.Context()).Error(err, "request failed")

	var (
		pe *rpc.ProviderError
		de *rpc.DecodeError
		te *rpc.TransportError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case errors.As(err, &pe):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      err.Error(),
			"code":       pe.Code,
			"message":    pe.Message,
			"request_id": pe.RequestID,
		})
	case errors.As(err, &de), errors.As(err, &te):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
