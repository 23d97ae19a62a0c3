package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/example/go-wordpiece/internal/config"
	"github.com/example/go-wordpiece/internal/metrics"
	"github.com/example/go-wordpiece/internal/store"
	"github.com/example/go-wordpiece/internal/text"
	"github.com/example/go-wordpiece/internal/tokenizer"
	"github.com/example/go-wordpiece/internal/vocab"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Codec turns text into token ids and back.
type Codec interface {
	EncodeTokens(text string) ([]int, []string, error)
	Decode(ids []int) (string, error)
}

// VocabInfo is the body of GET /vocab.
type VocabInfo struct {
	Size          int      `json:"size"`
	Reserved      []string `json:"reserved"`
	ValidSymbols  int      `json:"valid_symbols"`
	MaxTokenRunes int      `json:"max_token_runes"`
}

// InfoFor summarizes v for GET /vocab.
func InfoFor(v *vocab.Vocabulary) VocabInfo {
	return VocabInfo{
		Size:          v.Len(),
		Reserved:      vocab.Reserved(),
		ValidSymbols:  len(v.ValidSymbols()),
		MaxTokenRunes: v.MaxTokenRunes(),
	}
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes   int
	workers        int
	requestTimeout time.Duration
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		maxTextBytes:   65536,
		workers:        4,
		requestTimeout: 30 * time.Second,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum allowed text length in bytes for POST /encode.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithWorkers sets the maximum number of concurrent encode/decode calls.
// Zero or less disables throttling.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

var errWaitCancelled = errors.New("request cancelled while waiting for worker")

type handler struct {
	codec Codec
	info  VocabInfo
	opts  options
	sem   chan struct{} // semaphore for worker pool
	log   *slog.Logger
}

// NewHandler returns an http.Handler that serves /health, /vocab, /metrics,
// POST /encode and POST /decode.
func NewHandler(codec Codec, info VocabInfo, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		codec: codec,
		info:  info,
		opts:  opts,
		log:   opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	metrics.Register()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.instrument("/health", h.handleHealth))
	mux.HandleFunc("/vocab", h.instrument("/vocab", h.handleVocab))
	mux.HandleFunc("/encode", h.instrument("/encode", h.handleEncode))
	mux.HandleFunc("/decode", h.instrument("/decode", h.handleDecode))
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

func (h *handler) handleVocab(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.info)
}

type encodeRequest struct {
	Text string `json:"text"`
}

type encodeResponse struct {
	IDs    []int    `json:"ids"`
	Tokens []string `json:"tokens"`
}

func (h *handler) handleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.Body == nil || r.Body == http.NoBody {
		writeError(w, http.StatusBadRequest, "request body is required")
		return
	}

	var req encodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if _, err := text.Normalize(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, "text field is required")
		return
	}

	if len(req.Text) > h.opts.maxTextBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))
		return
	}

	var (
		resp    encodeResponse
		callErr error
	)
	start := time.Now()
	err := h.dispatch(r, func() {
		resp.IDs, resp.Tokens, callErr = h.codec.EncodeTokens(req.Text)
	})
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		h.writeDispatchError(w, r, "encode", err, durationMS)
		return
	}
	if callErr != nil {
		h.log.ErrorContext(r.Context(), "encode failed",
			slog.String("request_id", requestID(r.Context())),
			slog.Int("text_len", len(req.Text)),
			slog.Int64("duration_ms", durationMS),
			slog.String("error", callErr.Error()),
		)
		writeError(w, http.StatusInternalServerError, callErr.Error())
		return
	}

	h.log.InfoContext(r.Context(), "encode complete",
		slog.String("request_id", requestID(r.Context())),
		slog.Int("text_len", len(req.Text)),
		slog.Int("tokens", len(resp.IDs)),
		slog.Int64("duration_ms", durationMS),
	)

	if resp.IDs == nil {
		resp.IDs, resp.Tokens = []int{}, []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type decodeRequest struct {
	IDs *[]int `json:"ids"`
}

type decodeResponse struct {
	Text string `json:"text"`
}

func (h *handler) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.Body == nil || r.Body == http.NoBody {
		writeError(w, http.StatusBadRequest, "request body is required")
		return
	}

	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if req.IDs == nil {
		writeError(w, http.StatusBadRequest, "ids field is required")
		return
	}
	ids := *req.IDs

	var (
		out     string
		callErr error
	)
	start := time.Now()
	err := h.dispatch(r, func() {
		out, callErr = h.codec.Decode(ids)
	})
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		h.writeDispatchError(w, r, "decode", err, durationMS)
		return
	}
	if callErr != nil {
		status := http.StatusInternalServerError
		if errors.Is(callErr, vocab.ErrIndexOutOfRange) {
			status = http.StatusUnprocessableEntity
		}
		h.log.WarnContext(r.Context(), "decode failed",
			slog.String("request_id", requestID(r.Context())),
			slog.Int("ids", len(ids)),
			slog.Int64("duration_ms", durationMS),
			slog.String("error", callErr.Error()),
		)
		writeError(w, status, callErr.Error())
		return
	}

	h.log.InfoContext(r.Context(), "decode complete",
		slog.String("request_id", requestID(r.Context())),
		slog.Int("ids", len(ids)),
		slog.Int64("duration_ms", durationMS),
	)
	writeJSON(w, http.StatusOK, decodeResponse{Text: out})
}

// dispatch runs fn on a worker slot under the request deadline. The slot is
// held until fn returns, even when the caller has already given up.
func (h *handler) dispatch(r *http.Request, fn func()) error {
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
		case <-r.Context().Done():
			return errWaitCancelled
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if h.sem != nil {
			defer func() { <-h.sem }()
		}
		fn()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *handler) writeDispatchError(w http.ResponseWriter, r *http.Request, op string, err error, durationMS int64) {
	if errors.Is(err, errWaitCancelled) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	h.log.WarnContext(r.Context(), op+" timed out",
		slog.String("request_id", requestID(r.Context())),
		slog.Int64("duration_ms", durationMS),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusGatewayTimeout, op+" timed out")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server: wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	tok             *tokenizer.Tokenizer
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// New returns a Server. A nil tok is loaded from cfg.Paths.VocabDir on Start.
func New(cfg config.Config, tok *tokenizer.Tokenizer) *Server {
	shutdown := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if shutdown <= 0 {
		shutdown = 30 * time.Second
	}
	return &Server{
		cfg:             cfg,
		tok:             tok,
		logger:          slog.Default(),
		shutdownTimeout: shutdown,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// WithLogger overrides the request logger.
func (s *Server) WithLogger(l *slog.Logger) *Server {
	if l != nil {
		s.logger = l
	}
	return s
}

func (s *Server) Start(ctx context.Context) error {
	tok, err := s.tokenizer()
	if err != nil {
		return err
	}

	h := NewHandler(tok, InfoFor(tok.Vocabulary()),
		WithWorkers(s.cfg.Server.Workers),
		WithMaxTextBytes(s.cfg.Server.MaxTextBytes),
		WithRequestTimeout(time.Duration(s.cfg.Server.RequestTimeout)*time.Second),
		WithLogger(s.logger),
	)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.logger.Info("listening", "addr", s.cfg.Server.ListenAddr, "vocab_size", tok.Vocabulary().Len())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

func (s *Server) tokenizer() (*tokenizer.Tokenizer, error) {
	if s.tok != nil {
		return s.tok, nil
	}

	v, err := store.NewOSDir(s.cfg.Paths.VocabDir).Load()
	if err != nil {
		return nil, fmt.Errorf("load vocabulary from %s: %w", s.cfg.Paths.VocabDir, err)
	}

	return tokenizer.New(v,
		tokenizer.WithSubstituteUnknown(s.cfg.Tokenizer.SubstituteUnknown),
		tokenizer.WithLogger(s.logger),
	), nil
}

func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
