package itests

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adamskt/Coalesce/internal"
	"github.com/adamskt/Coalesce/internal/config"
	"github.com/adamskt/Coalesce/internal/db"
	"github.com/adamskt/Coalesce/internal/meta"
	"github.com/adamskt/Coalesce/internal/router"
)

var (
	testBaseURL string
	httpSrv     *http.Server
)

func TestMain(m *testing.M) {
	// opt-in: these tests need a local Postgres
	if os.Getenv("ITESTS") == "" {
		println("itests skipped: set ITESTS=1 and POSTGRES_DSN to run")
		os.Exit(0)
	}

	cfg := config.LoadConfig()

	teardownDB, err := SetupAndTeardownTestDB(cfg.PostgresDSN, db.InitPostgres)
	log.Printf("TestMain: setup test DB")
	if err != nil {
		println("setup test DB failed:", err.Error())
		os.Exit(1)
	}

	// entity descriptors come from the repo's models directory
	root, err := internal.FindRepoRoot()
	if err != nil {
		println("❌ findRepoRoot failed:", err.Error())
		os.Exit(1)
	}
	cfg.ModelsDir = filepath.Join(root, "models")

	if err := meta.InitRegistry(cfg.ModelsDir); err != nil {
		println("❌ InitRegistry failed:", err.Error())
		os.Exit(1)
	}
	println("✅ Registry initialized from:", cfg.ModelsDir)

	// HTTP service on the configured port
	cfg.Auth.Enabled = false
	if err := router.InitRoutes(cfg); err != nil {
		println("❌ InitRoutes failed:", err.Error())
		os.Exit(1)
	}
	httpSrv = &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: http.DefaultServeMux,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			println("❌ HTTP server failed:", err.Error())
			os.Exit(1)
		}
	}()

	if err := waitForPort("localhost", cfg.Port, 3*time.Second); err != nil {
		println("❌ HTTP port not ready:", err.Error())
		_ = httpSrv.Close()
		os.Exit(1)
	}
	testBaseURL = fmt.Sprintf("http://localhost:%s", cfg.Port)
	println("🚀 HTTP started at", testBaseURL)

	var ok bool
	if err := db.Pool.QueryRow(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name='cases')`,
	).Scan(&ok); err != nil {
		log.Printf("sanity check failed: %v", err)
	} else {
		log.Printf("cases table exists: %v", ok)
	}

	code := m.Run()

	// shut down in order: HTTP first, then the database
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	_ = httpSrv.Shutdown(ctx)
	cancel()

	if err := teardownDB(); err != nil {
		println("⚠️ drop test DB failed:", err.Error())
	} else {
		log.Printf("TestMain: test DB dropped")
	}
	os.Exit(code)
}

func waitForPort(host, port string, timeout time.Duration) error {
	addr := net.JoinHostPort(host, port)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 150*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("port %s not reachable within %s", port, timeout)
}
