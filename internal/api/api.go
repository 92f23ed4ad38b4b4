// Package api serves triage over HTTP/JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ppiankov/socwatch/internal/model"
	"github.com/ppiankov/socwatch/internal/service"
)

// MaxBodyBytes bounds a triage request body.
const MaxBodyBytes = 1 << 20

// Server wraps the HTTP routes for socwatch.
type Server struct {
	mux    *http.ServeMux
	svc    *service.Service
	logger *slog.Logger
	http   *http.Server
}

type triageRequest struct {
	Incident map[string]any `json:"incident"`
	Signals  map[string]any `json:"signals"`
}

type triageResponse struct {
	Result *model.Result `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// New creates a server with all routes registered.
func New(svc *service.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{mux: http.NewServeMux(), svc: svc, logger: logger}
	s.http = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/triage", s.handleTriage(false))
	s.mux.HandleFunc("/triage-ai", s.handleTriage(true))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve serves on an existing listener. It returns nil at once if
// Shutdown already ran.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("http server listening", "addr", lis.Addr().String())
	if err := s.http.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) handleTriage(withAI bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req triageRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "invalid", s.logger)
				return
			}
			writeError(w, http.StatusBadRequest, "invalid JSON body", "invalid", s.logger)
			return
		}
		if req.Incident == nil {
			writeError(w, http.StatusBadRequest, "missing incident object", "invalid", s.logger)
			return
		}

		var (
			res *model.Result
			err error
		)
		if withAI {
			res, err = s.svc.TriageAI(r.Context(), req.Incident, req.Signals)
		} else {
			res, err = s.svc.Triage(r.Context(), req.Incident, req.Signals)
		}
		if err != nil {
			class := service.Classify(err)
			writeError(w, statusFor(class), err.Error(), string(class), s.logger)
			return
		}

		writeJSON(w, http.StatusOK, triageResponse{Result: res}, s.logger)
	}
}

// statusFor maps an error class to its HTTP status. Advisory failures use
// 502 so callers can tell them from deterministic failures.
func statusFor(class service.Class) int {
	switch class {
	case service.ClassInvalid:
		return http.StatusBadRequest
	case service.ClassAdvisory:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, code int, msg, kind string, logger *slog.Logger) {
	if code >= http.StatusInternalServerError {
		logger.Warn("triage request failed", "status", code, "kind", kind, "error", msg)
	}
	writeJSON(w, code, errorResponse{Error: msg, Kind: kind}, logger)
}

func writeJSON(w http.ResponseWriter, code int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}
