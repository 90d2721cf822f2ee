// Package server provides route registration.
package server

// setupRoutes registers all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /api/health", s.handleHealth)

	// Scheduling API
	s.router.HandleFunc("POST /api/schedule", s.handleSchedule)
	s.router.HandleFunc("GET /api/negotiations", s.handleListNegotiations)
	s.router.HandleFunc("GET /api/negotiations/{id}", s.handleGetNegotiation)
}
