package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/supplysnap/backend/internal/model"
	"github.com/supplysnap/backend/internal/scheduler"
	"github.com/supplysnap/backend/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type createRequest struct {
	Notes      string `json:"notes"`
	IsMonthEnd *bool  `json:"is_month_end"`
	IsManual   *bool  `json:"is_manual"`
	CreatedBy  string `json:"created_by"`
}

// handleCreate captures all sources now and persists the result. Saves are
// manual unless the caller explicitly says otherwise.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	now := time.Now().UTC()
	isManual := true
	if req.IsManual != nil {
		isManual = *req.IsManual
	}
	isMonthEnd := model.IsMonthEnd(now)
	if req.IsMonthEnd != nil {
		isMonthEnd = *req.IsMonthEnd
	}
	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = "MANUAL"
	}

	raw, processed, err := s.capturer.Capture(r.Context(), now)
	if err != nil {
		slog.Error("manual capture failed", "error", err)
		writeError(w, http.StatusInternalServerError, "capture failed")
		return
	}
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "serialize failed")
		return
	}
	processedJSON, err := json.Marshal(processed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "serialize failed")
		return
	}

	res, err := s.store.Save(r.Context(), store.SaveParams{
		Periode:       model.Periode(now),
		SnapshotDate:  model.DateOnly(now),
		RawData:       rawJSON,
		ProcessedData: processedJSON,
		CreatedBy:     createdBy,
		IsMonthEnd:    isMonthEnd,
		IsManual:      isManual,
		Notes:         req.Notes,
	})
	if err != nil {
		slog.Error("manual save failed", "error", err)
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	s.cache.Invalidate()

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"result":  res.Kind,
		"id":      res.ID,
		"periode": model.Periode(now),
		"date":    model.DateOnly(now).Format("2006-01-02"),
	})
}

// handleRetrieve resolves a snapshot by id, date or periode, in that
// priority order. Absence is a 404, store failure a 500.
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var (
		snap *model.Snapshot
		err  error
	)

	switch {
	case r.URL.Query().Get("id") != "":
		id, perr := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		snap, err = s.store.GetByID(r.Context(), id)
	case r.URL.Query().Get("date") != "":
		date, perr := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		snap, err = s.store.GetByDate(r.Context(), date)
	default:
		periode := r.PathValue("periode")
		if !validPeriode(periode) {
			writeError(w, http.StatusBadRequest, "invalid periode, expected YYYYMM")
			return
		}
		snap, err = s.store.GetByPeriode(r.Context(), periode)
	}

	if err != nil {
		slog.Error("snapshot lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAvailable(w http.ResponseWriter, r *http.Request) {
	if data := s.cache.Get(); data != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	avail, err := s.store.ListAvailable(r.Context())
	if err != nil {
		slog.Error("availability listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	data, err := json.Marshal(avail)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "serialize failed")
		return
	}
	s.cache.Set(data)

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	periode := r.PathValue("periode")
	if !validPeriode(periode) {
		writeError(w, http.StatusBadRequest, "invalid periode, expected YYYYMM")
		return
	}

	metas, err := s.store.ListByPeriode(r.Context(), periode)
	if err != nil {
		slog.Error("history listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, metas)
}

func (s *Server) handleDeleteByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	n, err := s.store.DeleteByID(r.Context(), id)
	if err != nil {
		slog.Error("delete failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if n > 0 {
		s.cache.Invalidate()
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted_count": n})
}

func (s *Server) handleDeleteByDate(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	n, err := s.store.DeleteByDate(r.Context(), date)
	if err != nil {
		slog.Error("delete failed", "date", date, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if n > 0 {
		s.cache.Invalidate()
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted_count": n})
}

func (s *Server) handleTriggerNow(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.trigger.TriggerNow(name); err != nil {
		if errors.Is(err, scheduler.ErrUnknownSchedule) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("manual trigger failed", "schedule", name, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "schedule": name})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ok",
	}
	if updatedAt := s.cache.UpdatedAt(); !updatedAt.IsZero() {
		resp["listing_cached_at"] = updatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	writeJSON(w, http.StatusOK, resp)
}

func validPeriode(p string) bool {
	if len(p) != 6 {
		return false
	}
	for _, c := range p {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
