package harvester

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/J-Schoepplenberg/mailsift/extract"
)

// RegisterHTTP mounts the scan API on a chi router.
//
//	POST /v1/scan?name=<label>   raw file bytes in the body → scan result
//	GET  /v1/addresses           distinct addresses from the history store
//	GET  /v1/scans?limit=N       recent scans, newest first
//	GET  /healthz                liveness
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Route("/v1", func(r chi.Router) {
		r.Post("/scan", s.handleScan)
		r.Get("/addresses", s.handleAddresses)
		r.Get("/scans", s.handleScans)
	})
}

func (s *Service) handleScan(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}

	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize)
	data, err := io.ReadAll(body)
	if err != nil {
		httpError(w, http.StatusRequestEntityTooLarge, "body too large or unreadable")
		return
	}

	res, err := s.ScanBytes(r.Context(), name, data)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			httpError(w, http.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, extract.ErrArchiveOpen),
			errors.Is(err, extract.ErrMemberRead),
			errors.Is(err, extract.ErrPDFDecode):
			httpError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.logger.Error("scan failed", "name", name, "error", err)
			httpError(w, http.StatusInternalServerError, "scan failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleAddresses(w http.ResponseWriter, r *http.Request) {
	addrs, err := s.Addresses(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoStore) {
			httpError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.logger.Error("addresses", "error", err)
		httpError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if addrs == nil {
		addrs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"addresses": addrs})
}

func (s *Service) handleScans(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	hist, err := s.History(r.Context(), limit)
	if err != nil {
		if errors.Is(err, ErrNoStore) {
			httpError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.logger.Error("history", "error", err)
		httpError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": hist})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
