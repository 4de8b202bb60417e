package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/docdiff/capability"
	"github.com/hazyhaar/docdiff/compare"
	"github.com/hazyhaar/docdiff/docpipe"
	"github.com/hazyhaar/docdiff/report"
	"github.com/hazyhaar/docdiff/shield"
)

// handleHealth answers 200 while any capability circuit is open: the
// engines degrade instead of failing, so the status only reads "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	circuits := s.svc.Circuits()
	status := "ok"
	for _, state := range circuits {
		if state == capability.CircuitOpen {
			status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"jobs":         s.svc.Jobs(),
		"capabilities": circuits,
	})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"formats": docpipe.SupportedFormats()})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	log := shield.GetLogger(r.Context())

	if !shield.IsMultipart(r) {
		jsonErr(w, "expected multipart/form-data with original and modified files", http.StatusUnsupportedMediaType)
		return
	}
	if err := r.ParseMultipartForm(s.cfg.MaxMemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonErr(w, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		jsonErr(w, fmt.Sprintf("parse form: %v", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	original, err := formSource(r, "original")
	if err != nil {
		jsonErr(w, err.Error(), http.StatusBadRequest)
		return
	}
	modified, err := formSource(r, "modified")
	if err != nil {
		jsonErr(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := s.svc.SubmitSources(r.Context(), original, modified)
	switch {
	case errors.Is(err, compare.ErrClosed):
		jsonErr(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		log.Error("submit comparison", "error", err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}

	job, err := s.svc.Status(id)
	if err != nil {
		// Evicted between submit and read; only possible with a tiny retention.
		jsonErr(w, err.Error(), http.StatusNotFound)
		return
	}
	log.Info("comparison queued", "job_id", id, "original", original.Name, "modified", modified.Name)
	w.Header().Set("Location", "/api/v1/comparisons/"+id)
	writeJSON(w, http.StatusAccepted, job)
}

// formSource reads one uploaded file part into memory.
func formSource(r *http.Request, field string) (*compare.Source, error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing %s file field: %w", field, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	return &compare.Source{Name: hdr.Filename, Data: buf.Bytes()}, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.svc.Status(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Result(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Result(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, res); err != nil {
		shield.GetLogger(r.Context()).Error("render report", "job_id", res.ComparisonID, "error", err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, compare.ErrNotFound):
		jsonErr(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, compare.ErrNotReady):
		jsonErr(w, err.Error(), http.StatusConflict)
	default:
		jsonErr(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
