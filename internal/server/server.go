package server

import (
	"context"
	"crypto/tls"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cinevault/api/internal/config"
	"golang.org/x/crypto/acme/autocert"
)

type Server struct {
	httpServer     *http.Server
	addr           string
	tlsCfg         config.TLSConfig
	certManager    *autocert.Manager
	redirectServer *http.Server
}

// New builds the HTTP(S) server for the given handler. Telegram only delivers
// webhooks over HTTPS, so production deployments run with tls mode auto or
// manual; mode off is for local polling setups and tests.
func New(cfg config.ServerConfig, handler http.Handler) *Server {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	s := &Server{
		addr:   addr,
		tlsCfg: cfg.TLS,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}

	if cfg.TLS.Mode == "auto" {
		s.certManager = &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.TLS.Auto.Domain),
			Cache:      autocert.DirCache(cfg.TLS.Auto.CacheDir),
			Email:      cfg.TLS.Auto.Email,
		}
		s.httpServer.TLSConfig = &tls.Config{
			GetCertificate: s.certManager.GetCertificate,
			MinVersion:     tls.VersionTLS12,
		}
		s.redirectServer = &http.Server{
			Addr:         ":80",
			Handler:      s.certManager.HTTPHandler(nil),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
	}

	return s
}

func (s *Server) Start() error {
	switch s.tlsCfg.Mode {
	case "auto":
		log.Printf("Starting HTTPS server on %s (auto TLS for %s)", s.addr, s.tlsCfg.Auto.Domain)
		go func() {
			log.Printf("Starting HTTP redirect server on :80")
			if err := s.redirectServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("HTTP redirect server error: %v", err)
			}
		}()
		return s.httpServer.ListenAndServeTLS("", "")
	case "manual":
		log.Printf("Starting HTTPS server on %s (manual TLS)", s.addr)
		return s.httpServer.ListenAndServeTLS(s.tlsCfg.CertFile, s.tlsCfg.KeyFile)
	default:
		log.Printf("Starting server on %s", s.addr)
		return s.httpServer.ListenAndServe()
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")
	if s.redirectServer != nil {
		if err := s.redirectServer.Shutdown(ctx); err != nil {
			log.Printf("HTTP redirect server shutdown error: %v", err)
		}
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) TLSMode() string {
	if s.tlsCfg.Mode == "" {
		return "off"
	}
	return s.tlsCfg.Mode
}
