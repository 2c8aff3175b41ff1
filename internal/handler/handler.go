// Package handler exposes the data sources over POST JSON endpoints. It
// owns no query or security logic: requests are decoded, the principal is
// taken from the request context, and the data source does the rest.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/adamskt/Coalesce/internal/config"
	"github.com/adamskt/Coalesce/internal/datasource"
	"github.com/adamskt/Coalesce/internal/db"
	"github.com/adamskt/Coalesce/internal/logger"
	"github.com/adamskt/Coalesce/internal/meta"
	"github.com/adamskt/Coalesce/internal/query"
)

var (
	plans  *query.PlanCache
	paging config.PagingConfig
)

// Init wires the shared plan cache and paging limits. Must run after
// db.InitRedis so the cache can pick up the Redis client.
func Init(cfg *config.Config) {
	plans = query.NewPlanCache(db.RDB, cfg.PlanCache.MaxBytes)
	paging = cfg.Paging
}

// sourceFor resolves the entity and builds its standard data source. The
// dataSource request field names an alternate source; only "" and
// "Default" are recognized, anything else falls back to the standard one.
func sourceFor(entity string) (*datasource.StandardDataSource, error) {
	e, ok := meta.Registry[entity]
	if !ok {
		return nil, fmt.Errorf("entity %s not found", entity)
	}
	s := datasource.NewStandardDataSource(e, db.Pool, plans)
	if paging.DefaultPageSize > 0 {
		s.DefaultPageSize = paging.DefaultPageSize
	}
	if paging.MaxPageSize > 0 {
		s.MaxPageSize = paging.MaxPageSize
	}
	return s, nil
}

func decodeRequest(w http.ResponseWriter, r *http.Request, endpoint string, into any) bool {
	if r.Method != http.MethodPost {
		logger.Warn("method_not_allowed", map[string]any{
			"endpoint": endpoint,
			"method":   r.Method,
		})
		http.Error(w, "Only POST allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		logger.Warn("invalid_json", map[string]any{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		http.Error(w, "Invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, endpoint string, result any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.Error("write_response_failed", map[string]any{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
	}
}

// idString unquotes a JSON id that may arrive as a number or a string.
func idString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	return strings.Trim(s, `"`)
}
