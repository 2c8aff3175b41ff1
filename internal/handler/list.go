package handler

import (
	"net/http"

	"github.com/adamskt/Coalesce/internal/auth"
	"github.com/adamskt/Coalesce/internal/datasource"
	"github.com/adamskt/Coalesce/internal/logger"
)

type listRequest struct {
	Entity string `json:"entity"`
	datasource.ListParameters
}

// ListHandler serves a filtered, searched, sorted, paged view of an entity.
func ListHandler(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if !decodeRequest(w, r, "/api/list", &req) {
		return
	}

	src, err := sourceFor(req.Entity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	pr := auth.PrincipalFromContext(r.Context())
	result, err := src.GetList(r.Context(), pr, &req.ListParameters)
	if err != nil {
		logger.Error("list_failed", map[string]any{
			"endpoint": "/api/list",
			"entity":   req.Entity,
			"error":    err.Error(),
		})
		http.Error(w, "Failed to list data: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, "/api/list", result)
}
