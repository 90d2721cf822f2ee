// Package server provides the HTTP server and routing.
package server

import (
	"net/http"
	"time"

	"github.com/dtorcivia/meetquorum/internal/config"
	"github.com/dtorcivia/meetquorum/internal/database"
	"github.com/dtorcivia/meetquorum/internal/engine"
	"github.com/dtorcivia/meetquorum/internal/server/middleware"
	"github.com/dtorcivia/meetquorum/internal/util"
)

// Server is the HTTP front door for the negotiation engine.
type Server struct {
	config    *config.Config
	db        *database.DB
	router    *http.ServeMux
	engine    *engine.Engine
	targetLoc *time.Location
}

// New creates a new Server instance. db may be nil when persistence is
// disabled; health checks then skip the database probe.
func New(cfg *config.Config, db *database.DB, eng *engine.Engine) *Server {
	s := &Server{
		config:    cfg,
		db:        db,
		router:    http.NewServeMux(),
		engine:    eng,
		targetLoc: util.LoadLocation(cfg.Scheduling.Timezone),
	}

	s.setupRoutes()

	return s
}

// Handler returns the HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	// Build middleware chain (applied in reverse order)
	var handler http.Handler = s.router

	handler = middleware.RequestID(handler)
	handler = middleware.Logging(handler)
	handler = middleware.CORS(handler)
	handler = middleware.SecurityHeaders(handler)

	// Recovery middleware (outermost - catches panics)
	handler = middleware.Recovery(handler)

	return handler
}

// Engine returns the scheduling engine.
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

// Config returns the server configuration.
func (s *Server) Config() *config.Config {
	return s.config
}
