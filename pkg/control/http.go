package control

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/musterhq/muster/pkg/log"
	"github.com/musterhq/muster/pkg/store"
)

// Handler serves the control procedures over JSON HTTP:
//
//	POST /v1/uploads                      provision an upload slot
//	GET  /v1/documents/{id}               document record
//	GET  /v1/documents/{id}/redacted      signed read URL
//	GET  /v1/documents/{id}/insights      insight artifact
func Handler(svc *Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/uploads", provisionHandler(svc))
	mux.HandleFunc("GET /v1/documents/{id}", recordHandler(svc))
	mux.HandleFunc("GET /v1/documents/{id}/redacted", redactedHandler(svc))
	mux.HandleFunc("GET /v1/documents/{id}/insights", insightsHandler(svc))
	return mux
}

func provisionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProvisionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		up, err := svc.ProvisionUpload(r.Context(), req)
		if err != nil {
			if errors.Is(err, ErrUnsupportedType) {
				writeError(w, http.StatusUnsupportedMediaType, err.Error())
				return
			}
			serveFailure(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, up)
	}
}

func recordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.GetRecord(r.PathValue("id"))
		if err != nil {
			serveFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func redactedHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url, err := svc.GetRedacted(r.Context(), r.PathValue("id"))
		if err != nil {
			serveFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}

func insightsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		artifact, err := svc.GetInsights(r.PathValue("id"))
		if err != nil {
			serveFailure(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(artifact)
	}
}

// serveFailure maps procedure errors onto HTTP statuses. Pending
// artifacts answer 202 so pollers can distinguish "keep waiting" from
// "gone".
func serveFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, ErrNotReady):
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "not_ready"})
	default:
		logger := log.WithComponent("control")
		logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponent("control")
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
