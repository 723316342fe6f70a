package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rigel-imaging/camerad/internal/aoi"
	"github.com/rigel-imaging/camerad/internal/camera"
	"github.com/rigel-imaging/camerad/internal/eventlog"
	"github.com/rigel-imaging/camerad/internal/httputil"
	"github.com/rigel-imaging/camerad/internal/params"
)

// Server exposes the camera controller and event log over HTTP.
type Server struct {
	ctrl *camera.Controller
	log  *eventlog.DB
}

// NewServer creates the API server.
func NewServer(ctrl *camera.Controller, log *eventlog.DB) *Server {
	return &Server{ctrl: ctrl, log: log}
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/parameters", s.parametersHandler)
	mux.HandleFunc("/acquisition", s.acquisitionHandler)
	mux.HandleFunc("/events", s.eventsHandler)
	mux.HandleFunc("/events/summary", s.summaryHandler)
	return mux
}

// parameterJSON is the wire form of one store entry.
type parameterJSON struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Value       float64 `json:"value"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Mutable     bool    `json:"mutable"`
}

func (s *Server) parametersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listParameters(w)
	case http.MethodPost:
		s.applyParameters(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) listParameters(w http.ResponseWriter) {
	snap := s.ctrl.Snapshot()
	out := make([]parameterJSON, 0, len(snap.Names()))
	for _, name := range snap.Names() {
		p, err := snap.GetP(name)
		if err != nil {
			continue
		}
		out = append(out, parameterJSON{
			Name:        p.Name(),
			Description: p.Description(),
			Value:       p.Value(),
			Min:         p.Minimum(),
			Max:         p.Maximum(),
			Mutable:     p.Mutable(),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// applyParameters accepts a partial snapshot as {"name": value, ...}, merges
// it over the current store, and runs a reconciliation.
func (s *Server) applyParameters(w http.ResponseWriter, r *http.Request) {
	var edits map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&edits); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	snap := s.ctrl.Snapshot()
	for name, value := range edits {
		p, err := snap.GetP(name)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if !p.Mutable() {
			httputil.BadRequest(w, fmt.Sprintf("parameter %q is not editable", name))
			return
		}
		if err := p.SetValue(value); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}

	if err := s.ctrl.ApplyParameters(snap, false); err != nil {
		var rangeErr *params.RangeError
		if errors.As(err, &rangeErr) || errors.Is(err, aoi.ErrInvalidGeometry) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) acquisitionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSON(w, http.StatusOK, map[string]bool{"running": s.ctrl.Running()})
	case http.MethodPost:
		var req struct {
			Running bool `json:"running"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		var err error
		if req.Running {
			err = s.ctrl.StartAcquisition()
		} else {
			err = s.ctrl.StopAcquisition()
		}
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]bool{"running": s.ctrl.Running()})
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.BadRequest(w, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	records, err := s.log.Recent(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	summary, err := s.log.Summarize()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}
