package handler

import (
	"encoding/json"
	"net/http"

	"github.com/adamskt/Coalesce/internal/auth"
	"github.com/adamskt/Coalesce/internal/datasource"
	"github.com/adamskt/Coalesce/internal/logger"
)

type itemRequest struct {
	Entity string          `json:"entity"`
	ID     json.RawMessage `json:"id"`
	datasource.FilterParameters
}

// ItemHandler fetches one entity by primary key. A missing row is a normal
// response (wasSuccessful=false), not an HTTP error.
func ItemHandler(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeRequest(w, r, "/api/get", &req) {
		return
	}

	src, err := sourceFor(req.Entity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	pr := auth.PrincipalFromContext(r.Context())
	result, err := src.GetItem(r.Context(), pr, idString(req.ID), &req.FilterParameters)
	if err != nil {
		logger.Error("get_failed", map[string]any{
			"endpoint": "/api/get",
			"entity":   req.Entity,
			"error":    err.Error(),
		})
		http.Error(w, "Failed to get item: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, "/api/get", result)
}
