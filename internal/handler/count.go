package handler

import (
	"net/http"

	"github.com/adamskt/Coalesce/internal/auth"
	"github.com/adamskt/Coalesce/internal/datasource"
	"github.com/adamskt/Coalesce/internal/logger"
)

type countRequest struct {
	Entity string `json:"entity"`
	datasource.FilterParameters
}

// CountHandler returns the number of rows matching the same filter/search
// pipeline the list endpoint uses.
func CountHandler(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if !decodeRequest(w, r, "/api/count", &req) {
		return
	}

	src, err := sourceFor(req.Entity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	pr := auth.PrincipalFromContext(r.Context())
	result, err := src.GetCount(r.Context(), pr, &req.FilterParameters)
	if err != nil {
		logger.Error("count_failed", map[string]any{
			"endpoint": "/api/count",
			"entity":   req.Entity,
			"error":    err.Error(),
		})
		http.Error(w, "Failed to count: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, "/api/count", result)
}
