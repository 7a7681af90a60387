package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"zclc/internal/zcl"
)

const rebuildTimeout = 2 * time.Minute

// clusterSummary is the list form of a cluster.
type clusterSummary struct {
	Code      string            `json:"code"`
	Name      string            `json:"name"`
	Namespace string            `json:"namespace"`
	Attrs     []zcl.AttrSummary `json:"attrs"`
}

func (s *Server) handleAPIListClusters(w http.ResponseWriter, r *http.Request) {
	ns := r.URL.Query().Get("namespace")
	clusters := s.builder.Registry().All()
	out := make([]clusterSummary, 0, len(clusters))
	for i := range clusters {
		c := &clusters[i]
		if ns != "" && c.Namespace != ns {
			continue
		}
		out = append(out, clusterSummary{
			Code:      fmt.Sprintf("0x%04X", c.Code),
			Name:      c.Name,
			Namespace: c.Namespace,
			Attrs:     c.Attrs(),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPIGetCluster(w http.ResponseWriter, r *http.Request) {
	reg := s.builder.Registry()
	param := r.PathValue("code")

	var c *zcl.Cluster
	if code, err := strconv.ParseUint(param, 0, 16); err == nil {
		c = reg.Get(uint16(code))
	} else {
		c = reg.GetByName(param)
	}
	if c == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "cluster not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAPIListEnums(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.builder.Registry().Enums())
}

func (s *Server) handleAPIGetEnum(w http.ResponseWriter, r *http.Request) {
	e := s.builder.Registry().Enum(r.PathValue("key"))
	if e == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "enum not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleAPIGlobals(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.builder.Registry().Globals())
}

func (s *Server) handleAPIBuildState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"current": s.builder.Current(),
		"last":    s.builder.Last(),
	})
}

// handleAPIRebuild runs a build and returns its result. A failed build is
// reported with 422 and its diagnostics.
func (s *Server) handleAPIRebuild(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), rebuildTimeout)
	defer cancel()

	res, err := s.builder.Build(ctx)
	if err != nil {
		s.logger.Info("requested rebuild failed", "err", err)
		s.writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAPIBuildHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "build history not available"})
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, 500)
	}
	builds, err := s.store.Builds(limit)
	if err != nil {
		s.logger.Error("list builds", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	s.writeJSON(w, http.StatusOK, builds)
}

func (s *Server) handleAPIVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writeJSON encode failed", "err", err)
	}
}
