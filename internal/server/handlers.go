package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tagnet/backend/internal/identity"
	"tagnet/backend/internal/ingest"
)

func decodeBody(r *http.Request, dst any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst) == nil
}

type recordRequest struct {
	GatewayMAC string              `json:"gw_mac"`
	Readings   []ingest.RawReading `json:"readings"`
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "malformed request body")
		return
	}
	accepted, err := s.pipeline.Ingest(r.Context(), req.GatewayMAC, req.Readings)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeSuccess(w, map[string]int{"accepted": accepted})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, id *identity.Identity) {
	tagID := r.URL.Query().Get("tag")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidInput, "limit must be an integer")
			return
		}
		limit = n
	}
	readings, err := s.query.Readings(r.Context(), id, tagID, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeSuccess(w, map[string]any{
		"tag":          tagID,
		"total":        len(readings),
		"measurements": readings,
	})
}

type claimRequest struct {
	Tag string `json:"tag"`
	Name   string `json:"name,omitempty"`
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request, id *identity.Identity) {
	var req claimRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "malformed request body")
		return
	}
	tagID, err := s.tags.Claim(r.Context(), id, req.Tag, req.Name)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeSuccess(w, map[string]string{"tag": tagID})
}

type unclaimRequest struct {
	Tag string `json:"tag"`
}

func (s *Server) handleUnclaim(w http.ResponseWriter, r *http.Request, id *identity.Identity) {
	var req unclaimRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "malformed request body")
		return
	}
	if err := s.tags.Unclaim(r.Context(), id, req.Tag); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeSuccess(w, map[string]string{"tag": req.Tag})
}

type updateRequest struct {
	Tag string `json:"tag"`
	Name   string `json:"name"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, id *identity.Identity) {
	var req updateRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "malformed request body")
		return
	}
	if err := s.tags.Rename(r.Context(), id, req.Tag, req.Name); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeSuccess(w, map[string]string{"tag": req.Tag, "name": req.Name})
}

type shareRequest struct {
	Tag string `json:"tag"`
	User   string `json:"user"`
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request, id *identity.Identity) {
	var req shareRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "malformed request body")
		return
	}
	grant, err := s.tags.Share(r.Context(), id, req.Tag, req.User)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeSuccess(w, map[string]string{"tag": grant.TagID, "user": grant.GranteeID})
}

type unshareRequest struct {
	Tag string `json:"tag"`
	User   string `json:"user,omitempty"`
}

func (s *Server) handleUnshare(w http.ResponseWriter, r *http.Request, id *identity.Identity) {
	var req unshareRequest
	if !decodeBody(r, &req) {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "malformed request body")
		return
	}
	if err := s.tags.Unshare(r.Context(), id, req.Tag, req.User); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeSuccess(w, map[string]string{"tag": req.Tag})
}

// handleShared serves the grantee view by default; with ?tag= it serves
// the owner's outgoing grants on that tag instead.
func (s *Server) handleShared(w http.ResponseWriter, r *http.Request, id *identity.Identity) {
	if tagID := r.URL.Query().Get("tag"); tagID != "" {
		grants, err := s.tags.SharesOf(r.Context(), id, tagID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeSuccess(w, map[string]any{"tag": tagID, "grants": grants})
		return
	}
	shared, err := s.tags.SharedWithMe(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeSuccess(w, map[string]any{"tags": shared})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request, id *identity.Identity) {
	listings, err := s.tags.ListTags(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	email := ""
	if id != nil {
		email = id.Email
	}
	writeSuccess(w, map[string]any{"email": email, "tags": listings})
}
