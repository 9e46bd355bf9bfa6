// Package server is the HTTP boundary of the matching core. It is a thin
// pass-through around the order book's public operations: it validates and
// deserializes requests, forwards them, and serializes the results.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	match "github.com/openclob/openclob"
)

// Server exposes the four engine operations over HTTP.
type Server struct {
	book   *match.OrderBook
	logger *zap.Logger
	router *gin.Engine
}

// New builds the router with logging, recovery, CORS, and metrics
// middleware, and registers the routes.
func New(book *match.OrderBook, logger *zap.Logger) *Server {
	s := &Server{
		book:   book,
		logger: logger,
	}

	router := gin.New()

	p := ginprometheus.NewPrometheus("clobd")
	p.Use(router)

	router.Use(
		ginzap.Ginzap(logger, time.RFC3339, true),
		ginzap.RecoveryWithZap(logger, true),
		cors.Default(),
	)

	router.POST("/order", s.createOrder)
	router.DELETE("/order", s.deleteOrder)
	router.GET("/depth", s.getDepth)
	router.GET("/trades", s.getTrades)
	router.GET("/health", s.health)

	s.router = router
	return s
}

// Router returns the underlying gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// HTTPServer wraps the router in an http.Server bound to addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}
