// Package api serves a small HTTP admin interface listing the registered
// families and exposing the Prometheus metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scitags/genetlinkd/genl"
)

var logger = slog.New(slog.DiscardHandler)

type Server struct {
	Config

	server   *echo.Echo
	registry *genl.Registry
	gatherer *prometheus.Registry
}

// New returns a server reporting on r. Metrics are only served when reg
// is not nil.
func New(c *Config, r *genl.Registry, reg *prometheus.Registry) *Server {
	if c.Log {
		logger = slog.Default().With("t", "api")
	} else {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{Config: *c, registry: r, gatherer: reg}
}

func (s *Server) String() string {
	return "api"
}

func (s *Server) Init() error {
	logger.Debug("initialising the api server")
	s.server = echo.New()

	// Configure the middleware for extending the context of the
	// different handlers.
	s.server.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&extendedContext{c, s.server.Routes(), s.registry})
		}
	})

	// Configure the methods for each path
	s.server.GET("/", handleRoot)
	s.server.GET("/families", handleFamilies)
	s.server.GET("/families/:name", handleFamily)

	if s.gatherer != nil {
		s.server.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{Registry: s.gatherer})))
	}

	// Prevent the banner from showing up in the log
	s.server.HideBanner = true
	s.server.HidePort = true

	return nil
}

func (s *Server) Handler() http.Handler {
	return s.server
}

func (s *Server) Run(done <-chan struct{}) {
	logger.Debug("running the api server")

	go func() {
		addr := fmt.Sprintf("%s:%d", s.BindAddress, s.BindPort)
		if err := s.server.Start(addr); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("couldn't start the API server", "addr", addr, "err", err)
		}
	}()

	// Simply wait until we're done
	<-done
	logger.Debug("cleanly exiting the api server")
}

func (s *Server) Cleanup() error {
	logger.Debug("cleaning up the api server")
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(context.TODO()); err != nil {
		return fmt.Errorf("error shutting down the API server: %w", err)
	}
	return nil
}
