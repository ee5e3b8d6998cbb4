// Package server exposes the trade lifecycle and search over HTTP.
package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"SwapDesk/internal/lifecycle"
	"SwapDesk/internal/observability"
	"SwapDesk/internal/query"
	"SwapDesk/internal/trade"
)

// userHeader carries the acting user's login. Authentication happens at the
// gateway; this service trusts the header for privilege evaluation.
const userHeader = "X-User-Login"

// HTTPServer wires gin routes to the lifecycle and query services.
type HTTPServer struct {
	trades  *lifecycle.Service
	queries *query.Service
	health  *observability.HealthChecker
	log     zerolog.Logger
}

func NewHTTPServer(trades *lifecycle.Service, queries *query.Service, health *observability.HealthChecker, log zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		trades:  trades,
		queries: queries,
		health:  health,
		log:     log,
	}
}

// Router builds the gin engine with all routes registered.
func (s *HTTPServer) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", gin.WrapF(s.health.LivenessHandler))
	r.GET("/readyz", gin.WrapF(s.health.ReadinessHandler))

	trades := r.Group("/trades")
	{
		trades.POST("", s.createTrade)
		trades.GET("/search", s.searchTrades)
		trades.GET("/:id", s.getTrade)
		trades.PUT("/:id", s.amendTrade)
		trades.DELETE("/:id", s.deleteTrade)
		trades.POST("/:id/terminate", s.terminateTrade)
		trades.POST("/:id/cancel", s.cancelTrade)
	}

	return r
}

func (s *HTTPServer) createTrade(c *gin.Context) {
	var req trade.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body: " + err.Error()})
		return
	}

	booked, err := s.trades.Create(c.Request.Context(), &req, c.GetHeader(userHeader))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toTradeResponse(booked))
}

func (s *HTTPServer) getTrade(c *gin.Context) {
	tradeID, ok := s.tradeID(c)
	if !ok {
		return
	}

	t, err := s.trades.GetActive(c.Request.Context(), tradeID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTradeResponse(t))
}

func (s *HTTPServer) amendTrade(c *gin.Context) {
	tradeID, ok := s.tradeID(c)
	if !ok {
		return
	}

	var req trade.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body: " + err.Error()})
		return
	}

	amended, err := s.trades.Amend(c.Request.Context(), tradeID, &req, c.GetHeader(userHeader))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTradeResponse(amended))
}

func (s *HTTPServer) deleteTrade(c *gin.Context) {
	tradeID, ok := s.tradeID(c)
	if !ok {
		return
	}

	cancelled, err := s.trades.Delete(c.Request.Context(), tradeID, c.GetHeader(userHeader))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTradeResponse(cancelled))
}

func (s *HTTPServer) terminateTrade(c *gin.Context) {
	tradeID, ok := s.tradeID(c)
	if !ok {
		return
	}

	terminated, err := s.trades.Terminate(c.Request.Context(), tradeID, c.GetHeader(userHeader))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTradeResponse(terminated))
}

func (s *HTTPServer) cancelTrade(c *gin.Context) {
	tradeID, ok := s.tradeID(c)
	if !ok {
		return
	}

	cancelled, err := s.trades.Cancel(c.Request.Context(), tradeID, c.GetHeader(userHeader))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTradeResponse(cancelled))
}

func (s *HTTPServer) searchTrades(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	results, err := s.queries.Search(
		c.Request.Context(),
		c.Query("query"),
		c.Query("sort"),
		limit,
		offset,
	)
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]tradeResponse, 0, len(results))
	for i := range results {
		out = append(out, toTradeResponse(&results[i]))
	}
	c.JSON(http.StatusOK, gin.H{"trades": out, "count": len(out)})
}

func (s *HTTPServer) tradeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trade id must be a positive integer"})
		return 0, false
	}
	return id, true
}

// writeError maps domain errors to HTTP statuses.
func (s *HTTPServer) writeError(c *gin.Context, err error) {
	var (
		verr *trade.ValidationError
		serr *trade.InvalidScheduleError
		aerr *trade.AuthorizationError
		nerr *trade.NotFoundError
		cerr *trade.ConflictError
		rerr *trade.ReferenceDataError
	)

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "violations": verr.Violations})
	case errors.As(err, &serr):
		c.JSON(http.StatusBadRequest, gin.H{"error": serr.Error()})
	case errors.Is(err, query.ErrBadFilter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &aerr):
		c.JSON(http.StatusForbidden, gin.H{"error": aerr.Error()})
	case errors.As(err, &nerr):
		c.JSON(http.StatusNotFound, gin.H{"error": nerr.Error()})
	case errors.As(err, &cerr):
		c.JSON(http.StatusConflict, gin.H{"error": cerr.Error()})
	case errors.As(err, &rerr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": rerr.Error()})
	default:
		s.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
