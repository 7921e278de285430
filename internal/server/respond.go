package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"tagnet/backend/internal/ingest"
	"tagnet/backend/internal/query"
	tagservice "tagnet/backend/internal/tag/service"
)

// Stable error codes returned to callers. Internal detail never leaks
// through these.
const (
	codeInvalidInput = "InvalidInput"
	codeForbidden    = "Forbidden"
	codeConflict     = "Conflict"
	codeNotFound     = "NotFound"
	codeUnavailable  = "Unavailable"
)

type successEnvelope struct {
	Result string `json:"result"`
	Data   any    `json:"data"`
}

type errorEnvelope struct {
	Result string `json:"result"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

func writeSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(successEnvelope{Result: "success", Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Result: "error", Code: code, Error: message})
}

// writeServiceError maps sentinel errors from the services onto the stable
// code taxonomy. Anything unrecognized reports Unavailable without detail.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tagservice.ErrMissingTag),
		errors.Is(err, tagservice.ErrMissingGrantee),
		errors.Is(err, tagservice.ErrSelfShare),
		errors.Is(err, query.ErrMissingTag),
		errors.Is(err, ingest.ErrInvalidBatch):
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
	case errors.Is(err, tagservice.ErrUnauthenticated),
		errors.Is(err, tagservice.ErrNotOwner),
		errors.Is(err, query.ErrForbidden):
		writeError(w, http.StatusForbidden, codeForbidden, "forbidden")
	case errors.Is(err, tagservice.ErrTagAlreadyClaimed):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, query.ErrNoReadings):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	default:
		s.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, codeUnavailable, "internal error")
	}
}
