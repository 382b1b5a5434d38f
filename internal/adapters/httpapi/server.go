package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mikey/phish-screen/internal/admission"
	"github.com/mikey/phish-screen/internal/core"
	"github.com/mikey/phish-screen/internal/ports"
	"go.uber.org/zap"
)

// Pipeline is the evaluation service behind the HTTP endpoints
type Pipeline interface {
	Evaluate(ctx context.Context, req *core.EvaluationRequest) (*core.EvaluationResult, error)
	ExtractText(ctx context.Context, image []byte) *core.TextExtraction
	CacheSize() int
}

// OCRStatus reports whether the shared OCR client has been constructed
type OCRStatus interface {
	Initialized() bool
}

// Options configures the HTTP server
type Options struct {
	ListenAddress  string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server is the HTTP front end. It implements ports.Server.
type Server struct {
	opts        Options
	pipeline    Pipeline
	notifier    ports.Notifier
	scoringGate *admission.Gate
	ocrGate     *admission.Gate
	ocr         OCRStatus
	logger      *zap.Logger

	active  atomic.Int64
	handler http.Handler
	srv     *http.Server
}

var _ ports.Server = (*Server)(nil)

// NewServer creates a new HTTP server
func NewServer(
	opts Options,
	pipeline Pipeline,
	notifier ports.Notifier,
	scoringGate *admission.Gate,
	ocrGate *admission.Gate,
	ocr OCRStatus,
	logger *zap.Logger,
) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	s := &Server{
		opts:        opts,
		pipeline:    pipeline,
		notifier:    notifier,
		scoringGate: scoringGate,
		ocrGate:     ocrGate,
		ocr:         ocr,
		logger:      logger,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /evaluate-phishing", s.handleEvaluate(core.KindPhishing))
	mux.HandleFunc("POST /evaluate-social-engineering", s.handleEvaluate(core.KindSocialEngineering))
	mux.HandleFunc("POST /evaluate", s.handleEvaluate(core.KindUnified))
	mux.HandleFunc("POST /analyze", s.handleEvaluate(core.KindRouted))
	mux.HandleFunc("POST /extract-text", s.handleExtractText)

	mux.HandleFunc("POST /send-alert-email", s.handleSendAlertEmail)
	mux.HandleFunc("POST /send-whatsapp-notification", s.handleSendWhatsApp)

	return s.recoverer(s.requestContext(cors(s.track(mux))))
}

// Handler returns the root handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ActiveRequests returns the number of requests in flight
func (s *Server) ActiveRequests() int64 {
	return s.active.Load()
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.ListenAddress, err)
	}

	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	s.logger.Info("HTTP server listening", zap.String("address", ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop stops accepting connections and waits for in-flight requests until ctx is done
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	s.logger.Info("HTTP server shutting down", zap.Int64("active_requests", s.active.Load()))
	return s.srv.Shutdown(ctx)
}
