package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/efebarandurmaz/socialgraph/internal/export"
	"github.com/efebarandurmaz/socialgraph/internal/network"
	"github.com/efebarandurmaz/socialgraph/internal/recommend"
	"github.com/efebarandurmaz/socialgraph/internal/social"
	"github.com/efebarandurmaz/socialgraph/internal/storage"
)

// ConnectionRequest is the body of POST and DELETE /connections.
type ConnectionRequest struct {
	A int `json:"a"`
	B int `json:"b"`
}

// CreatePersonResponse reports the stored person and the friendships the
// auto-connector created for them.
type CreatePersonResponse struct {
	Person          social.Person `json:"person"`
	AutoConnections int           `json:"auto_connections"`
}

// RecommendationsResponse pairs ranked suggestions with their summary.
type RecommendationsResponse struct {
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Summary         recommend.Summary          `json:"summary"`
}

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr   *social.ValidationError
		status int
		body   = ErrorResponse{Error: err.Error()}
	)
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body.Field = verr.Field
	case social.IsNotFound(err):
		status = http.StatusNotFound
	case social.IsConflict(err):
		status = http.StatusConflict
	case errors.Is(err, network.ErrNoRepository):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return social.NewValidationError("body", "invalid JSON: %v", err)
	}
	return nil
}

func pathID(r *http.Request) (int, error) {
	return network.ParseID(chi.URLParam(r, "id"))
}

func (s *Server) listPersons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("q") {
		writeJSON(w, http.StatusOK, s.svc.Persons())
		return
	}
	found, err := s.svc.FindByName(q.Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) createPerson(w http.ResponseWriter, r *http.Request) {
	var in network.NewPerson
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, created, err := s.svc.AddPerson(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/persons/%d", p.ID))
	writeJSON(w, http.StatusCreated, CreatePersonResponse{Person: p, AutoConnections: created})
}

func (s *Server) getPerson(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Person(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deletePerson(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.RemovePerson(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// egoNetwork returns the ego graph as JSON, or in any export format named by
// ?format=.
func (s *Server) egoNetwork(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.svc.Ego(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		writeJSON(w, http.StatusOK, g)
		return
	}
	s.writeExport(w, r, format, g, export.WithName(fmt.Sprintf("ego_%d", id)))
}

func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			s.writeError(w, r, social.NewValidationError("limit", "must be a positive integer"))
			return
		}
	}
	recs, err := s.svc.Recommend(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sum, err := s.svc.RecommendationSummary(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []recommend.Recommendation{}
	}
	writeJSON(w, http.StatusOK, RecommendationsResponse{Recommendations: recs, Summary: sum})
}

func (s *Server) analyzePerson(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pa, err := s.svc.AnalyzePerson(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pa)
}

func (s *Server) listConnections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Connections())
}

func (s *Server) createConnection(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Connect(r.Context(), req.A, req.B); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) deleteConnection(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Disconnect(r.Context(), req.A, req.B); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Statistics(r.Context()))
}

func (s *Server) centrality(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Centrality(r.Context()))
}

func (s *Server) communities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Communities(r.Context()))
}

// exportNetwork renders the full network. ?communities=true clusters nodes
// by detected community.
func (s *Server) exportNetwork(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = export.FormatJSON
	}
	if strings.EqualFold(format, "yaml") {
		w.Header().Set("Content-Type", "application/yaml")
		if err := storage.EncodeYAML(w, s.svc.Snapshot()); err != nil {
			s.logger.Error("yaml export failed", zap.Error(err))
		}
		return
	}

	var opts []export.Option
	if withCommunities, _ := strconv.ParseBool(q.Get("communities")); withCommunities {
		opts = append(opts, export.WithCommunities(partition(s.svc.Communities(r.Context()))))
	}
	s.writeExport(w, r, format, s.svc.Graph(), opts...)
}

func (s *Server) writeExport(w http.ResponseWriter, r *http.Request, format string, g *social.Graph, opts ...export.Option) {
	var contentType string
	switch strings.ToLower(format) {
	case export.FormatJSON:
		contentType = "application/json"
	case export.FormatDOT:
		contentType = "text/vnd.graphviz"
	case export.FormatMermaid:
		contentType = "text/plain; charset=utf-8"
	default:
		s.writeError(w, r, social.NewValidationError("format", "unknown export format %q", format))
		return
	}
	w.Header().Set("Content-Type", contentType)
	if err := export.Write(w, format, g, opts...); err != nil {
		s.logger.Error("export failed", zap.String("format", format), zap.Error(err))
	}
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Save(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	persons, connections := s.svc.Size()
	writeJSON(w, http.StatusOK, map[string]int{"persons": persons, "connections": connections})
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reload(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	persons, connections := s.svc.Size()
	writeJSON(w, http.StatusOK, map[string]int{"persons": persons, "connections": connections})
}

func partition(groups [][]social.Person) [][]int {
	out := make([][]int, len(groups))
	for i, members := range groups {
		ids := make([]int, len(members))
		for j, p := range members {
			ids[j] = p.ID
		}
		out[i] = ids
	}
	return out
}
