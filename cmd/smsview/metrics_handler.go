package main

import (
	"encoding/json"
	"net/http"

	"smsview/internal/metrics"
	"smsview/internal/session"
	"smsview/internal/tracing"

	"github.com/sirupsen/logrus"
)

// handleMetrics returns current application metrics
func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := metrics.GetSnapshot()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		if err := encoder.Encode(snapshot); err != nil {
			s.logger.WithFields(logrus.Fields{
				session.LogFieldRequestID: tracing.GetRequestID(r.Context()),
				session.LogFieldTraceID:   tracing.GetTraceID(r.Context()),
				"error":                   err,
			}).Error("Failed to encode metrics response")

			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}
}
