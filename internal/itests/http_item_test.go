package itests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/adamskt/Coalesce/internal/db"
)

type itemEnvelope struct {
	WasSuccessful bool           `json:"wasSuccessful"`
	Message       string         `json:"message"`
	Object        map[string]any `json:"object"`
}

func postItem(t *testing.T, payload map[string]any) *itemEnvelope {
	t.Helper()
	if testBaseURL == "" || httpSrv == nil {
		t.Fatal("bootstrap not ready: HTTP server/baseURL missing")
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, testBaseURL+"/api/get", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		t.Fatalf("POST /api/get failed: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d. body=%s", resp.StatusCode, string(b))
	}

	var env itemEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("invalid JSON response: %v; body=%s", err, string(b))
	}
	return &env
}

// /api/get: fetch one case by primary key
func Test_Get_Case_ByID(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var id int
	var title string
	if err := db.Pool.QueryRow(ctx,
		`SELECT id, title FROM cases ORDER BY id ASC LIMIT 1`,
	).Scan(&id, &title); err != nil {
		t.Fatalf("expected row from DB not found: %v", err)
	}

	env := postItem(t, map[string]any{
		"entity":   "case",
		"id":       id,
		"includes": "none",
	})

	if !env.WasSuccessful {
		t.Fatalf("wasSuccessful=false: %s", env.Message)
	}
	if env.Object == nil {
		t.Fatalf("object missing in response")
	}
	if got, _ := env.Object["title"].(string); got != title {
		t.Fatalf("title mismatch: got %q want %q", got, title)
	}

	t.Logf("✅ /api/get returned case %d (%q)", id, title)
}

// /api/get: a missing id is a normal unsuccessful result, not an HTTP error
func Test_Get_Case_NotFound(t *testing.T) {
	env := postItem(t, map[string]any{
		"entity": "case",
		"id":     99999999,
	})

	if env.WasSuccessful {
		t.Fatalf("expected wasSuccessful=false for missing id, got success: %#v", env.Object)
	}
	if env.Object != nil {
		t.Fatalf("expected nil object for missing id, got %#v", env.Object)
	}

	t.Logf("✅ missing id reported as unsuccessful result (%q)", env.Message)
}

// /api/get: an unparsable id behaves like not-found
func Test_Get_Case_UnparsableID(t *testing.T) {
	env := postItem(t, map[string]any{
		"entity": "case",
		"id":     "not-a-number",
	})

	if env.WasSuccessful {
		t.Fatalf("expected wasSuccessful=false for unparsable id")
	}

	t.Logf("✅ unparsable id reported as unsuccessful result (%q)", env.Message)
}
