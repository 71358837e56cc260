package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"smsview/internal/constants"
	apperrors "smsview/internal/errors"
	"smsview/internal/metrics"
	"smsview/internal/middleware"
	"smsview/internal/models"
	"smsview/internal/security"
	"smsview/internal/session"
	"smsview/internal/tracing"
	"smsview/internal/view"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// multipart overhead allowed on top of the upload limit
const multipartSlackBytes = 1 << 20

// ConversationService loads backups and answers filter queries.
type ConversationService interface {
	Begin() uint64
	Abandon(gen uint64)
	LoadAt(ctx context.Context, gen uint64, name string, r io.Reader) (*models.LoadResult, error)
	Filter(term string) session.View
	MaxUploadBytes() int64
}

// LoadHistory lists recent loads from the journal.
type LoadHistory interface {
	Recent(ctx context.Context, limit int) ([]models.LoadEvent, error)
}

// conversation joins the loader and the session it writes to.
type conversation struct {
	*session.Loader
	*session.Session
}

type Server struct {
	cfg     *models.Config
	router  *mux.Router
	logger  *logrus.Logger
	svc     ConversationService
	history LoadHistory
	verbose bool
	server  *http.Server
}

// NewServer wires the routes. history may be nil when the journal is disabled.
func NewServer(cfg *models.Config, svc ConversationService, history LoadHistory, logger *logrus.Logger, verbose bool) *Server {
	s := &Server{
		cfg:     cfg,
		router:  mux.NewRouter(),
		logger:  logger,
		svc:     svc,
		history: history,
		verbose: verbose,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.ObservabilityMiddleware(s.logger, middleware.Options{
		TrustProxyHeaders: s.cfg.Server.TrustProxyHeaders,
		Verbose:           s.verbose,
		QuietPaths:        []string{"/health", "/metrics"},
	}))

	s.router.HandleFunc("/", s.handleIndex()).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)
	s.router.HandleFunc(view.SocketPath, s.handleSocket()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/backup", s.handleUpload()).Methods(http.MethodPost)
	api.HandleFunc("/messages", s.handleMessages()).Methods(http.MethodGet)
	api.HandleFunc("/loads", s.handleLoads()).Methods(http.MethodGet)
}

func (s *Server) Start() error {
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on http://%s", addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := r.URL.Query().Get("q")
		v := s.svc.Filter(term)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := view.RenderPage(w, view.NewPage(term, v.Generation, v.Total, v.Messages)); err != nil {
			s.logger.WithError(err).Error("Failed to render page")
		}
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (s *Server) handleUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := checkSameOrigin(r); err != nil {
			s.logger.WithFields(logrus.Fields{
				session.LogFieldRequestID: tracing.GetRequestID(ctx),
				"origin":                  r.Header.Get("Origin"),
			}).Warn("Rejected cross-origin upload")
			writeJSON(w, http.StatusForbidden, errorResponse{Code: string(apperrors.ErrCodeInvalidInput), Message: "Cross-origin uploads are not allowed"})
			return
		}

		// the selection is ordered by arrival, not by when its body finishes
		gen := s.svc.Begin()
		loading := false
		defer func() {
			if !loading {
				s.svc.Abandon(gen)
			}
		}()

		r.Body = http.MaxBytesReader(w, r.Body, s.svc.MaxUploadBytes()+multipartSlackBytes)
		file, header, err := r.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
			w.WriteHeader(http.StatusNoContent)
			return
		case err != nil:
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.writeError(w, r, apperrors.NewReadFailure("", err))
				return
			}
			s.writeError(w, r, apperrors.NewValidationError("file", "", "request must be a multipart form with a file field"))
			return
		}
		defer file.Close()

		if err := security.ValidateBackupName(header.Filename); err != nil {
			s.writeError(w, r, apperrors.NewValidationError("file", header.Filename, "must be an "+constants.BackupFileExtension+" backup").
				WithUserMessage("Only "+constants.BackupFileExtension+" backup files can be loaded"))
			return
		}

		loading = true
		result, err := s.svc.LoadAt(ctx, gen, header.Filename, file)
		if errors.Is(err, session.ErrNoFile) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.IncrementCounter(metrics.FilterQueriesTotal, map[string]string{"source": "http"}, "Filter queries served")
		writeJSON(w, http.StatusOK, s.svc.Filter(r.URL.Query().Get("q")))
	}
}

func (s *Server) handleLoads() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.history == nil {
			writeJSON(w, http.StatusOK, []models.LoadEvent{})
			return
		}

		limit := constants.DefaultRecentLoadsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				s.writeError(w, r, apperrors.NewValidationError("limit", raw, "must be a positive integer"))
				return
			}
			limit = min(n, constants.DefaultJournalEntries)
		}

		events, err := s.history.Recent(r.Context(), limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if events == nil {
			events = []models.LoadEvent{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	requestID := tracing.GetRequestID(r.Context())

	fields := logrus.Fields{
		session.LogFieldRequestID:  requestID,
		session.LogFieldStatusCode: status,
	}
	logger := apperrors.NewLogger(s.logger).WithFilter(func(f logrus.Fields) logrus.Fields {
		return session.SafeFields(r.Context(), f)
	})
	if status >= http.StatusInternalServerError {
		logger.LogError(err, "Request failed", fields)
	} else {
		logger.LogWarn(err, "Request rejected", fields)
	}

	writeJSON(w, status, errorResponse{
		Code:      string(apperrors.GetCode(err)),
		Message:   apperrors.GetUserMessage(err),
		RequestID: requestID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
