package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rezonia/invoice-engine/internal/importer"
	"github.com/rezonia/invoice-engine/internal/logger"
	"github.com/rezonia/invoice-engine/internal/model"
	"github.com/rezonia/invoice-engine/internal/parser/ubl"
	"github.com/rezonia/invoice-engine/internal/validation"
)

// RequestIDHeader carries the request correlation ID
const RequestIDHeader = "X-Request-ID"

const requestTimeout = 30 * time.Second

// Config holds server configuration
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool

	// Import defaults, overridable per request with ?mode=. An absent
	// tolerance falls back to the default; a valid zero reconciles exactly.
	ImportMode         importer.Mode
	Tolerance          decimal.NullDecimal
	CurrencyTolerances map[model.Currency]decimal.Decimal

	// Peppol enables the Peppol BIS rules on every validation
	Peppol bool
}

// Server represents the HTTP API server
type Server struct {
	config *Config
	router *gin.Engine
	log    zerolog.Logger
}

// NewServer creates a new API server
func NewServer(config *Config) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config: config,
		router: gin.New(),
		log:    logger.WithComponent("server"),
	}
	s.router.Use(gin.Recovery(), requestID(), s.requestLogger())

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/import", s.handleImport)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/compute", s.handleCompute)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("address", s.config.Address).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := s.log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = s.log.Error()
		}
		ev.Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleImport(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	mode := s.config.ImportMode
	if q := c.Query("mode"); q != "" {
		m, err := importer.ParseMode(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		mode = m
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	res, err := s.importer(c, mode).ImportXML(ctx, bytes.NewReader(body))
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, ImportResponse{
		CorrelationID: res.CorrelationID,
		Mode:          string(res.Mode),
		Clean:         res.Clean(),
		Invoice:       newInvoiceView(res.Invoice),
		Anomalies:     res.Anomalies,
		Discrepancies: res.Discrepancies,
		Violations:    newViolations(s.validator(c).Validate(res.Invoice)),
	})
}

func (s *Server) handleValidate(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	res, err := s.importer(c, importer.ModeLenient).ImportXML(ctx, bytes.NewReader(body))
	if err != nil {
		s.abort(c, err)
		return
	}

	violations := newViolations(s.validator(c).Validate(res.Invoice))
	var warnings []string
	if w, ok := res.Warning().(*importer.ImportWarning); ok {
		warnings = w.Messages()
	}

	c.JSON(http.StatusOK, ValidationResponse{
		Valid:      len(violations) == 0 && res.Clean(),
		Violations: violations,
		Warnings:   warnings,
	})
}

func (s *Server) handleCompute(c *gin.Context) {
	var req ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	inv, err := buildInvoice(&req)
	if err != nil {
		s.abort(c, err)
		return
	}

	if c.Query("format") == "ubl" {
		out, err := ubl.Encode(inv)
		if err != nil {
			s.abort(c, err)
			return
		}
		c.Data(http.StatusOK, "application/xml; charset=utf-8", out)
		return
	}

	tol := s.tolerance(inv.Currency())
	rules := s.rules(c)
	rules = append(rules, validation.TotalsConsistency(tol))

	c.JSON(http.StatusOK, ComputeResponse{
		Invoice:       newInvoiceView(inv),
		Violations:    newViolations(validation.New(rules...).Validate(inv)),
		Discrepancies: model.CompareTotals(inv.ImportedTotals(), inv.Totals(), tol),
	})
}

// abort maps engine errors to HTTP status codes
func (s *Server) abort(c *gin.Context, err error) {
	var (
		pe *model.ParseError
		fe *importer.FieldError
		re *importer.ReconciliationError
		ve *model.ValidationError
		nl *model.NoLinesError
	)

	switch {
	case errors.As(err, &pe):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Field: pe.Field})
	case errors.As(err, &re):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Discrepancies: re.Discrepancies})
	case errors.As(err, &fe):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Field: fe.Field})
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Field: ve.Field})
	case errors.As(err, &nl):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Field: "lines"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "request timed out"})
	default:
		s.log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func (s *Server) importer(c *gin.Context, mode importer.Mode) *importer.Importer {
	opts := []importer.Option{
		importer.WithMode(mode),
		importer.WithLogger(s.log.With().Str("request_id", c.GetString("request_id")).Logger()),
	}
	if s.config.Tolerance.Valid {
		opts = append(opts, importer.WithTolerance(s.config.Tolerance.Decimal))
	}
	for cur, tol := range s.config.CurrencyTolerances {
		opts = append(opts, importer.WithCurrencyTolerance(cur, tol))
	}
	return importer.New(opts...)
}

func (s *Server) tolerance(cur model.Currency) decimal.Decimal {
	if tol, ok := s.config.CurrencyTolerances[cur]; ok {
		return tol
	}
	if s.config.Tolerance.Valid {
		return s.config.Tolerance.Decimal
	}
	return model.DefaultTolerance
}

// rules adds the Peppol rule set when configured or requested with ?rules=peppol
func (s *Server) rules(c *gin.Context) []validation.Rule {
	if s.config.Peppol || strings.EqualFold(c.Query("rules"), "peppol") {
		return validation.PeppolRules()
	}
	return nil
}

func (s *Server) validator(c *gin.Context) *validation.Validator {
	return validation.New(s.rules(c)...)
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return nil, false
	}

	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty request body"})
		return nil, false
	}
	return body, true
}
