package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/zombar/textinsight/internal/models"
)

// setupPostgresDB opens a migrated database on a fresh Postgres database.
// Connection parameters come from TEST_DB_* and default to a local server;
// the test is skipped when Postgres is not reachable.
func setupPostgresDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Postgres test in short mode")
	}

	host := getEnvOrDefault("TEST_DB_HOST", "localhost")
	port := getEnvOrDefault("TEST_DB_PORT", "5432")
	user := getEnvOrDefault("TEST_DB_USER", "postgres")
	password := getEnvOrDefault("TEST_DB_PASSWORD", "postgres")
	dsn := func(name string) string {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable connect_timeout=2",
			host, port, user, password, name)
	}

	admin, err := sql.Open("postgres", dsn("postgres"))
	if err != nil {
		t.Skipf("Could not connect to PostgreSQL for testing: %v (set TEST_DB_* env vars if needed)", err)
	}
	defer admin.Close()
	if err := admin.Ping(); err != nil {
		t.Skipf("Could not ping PostgreSQL for testing: %v", err)
	}

	name := fmt.Sprintf("textinsight_test_%d", time.Now().UnixNano())
	if _, err := admin.Exec("CREATE DATABASE " + name); err != nil {
		t.Skipf("Could not create test database: %v", err)
	}
	t.Cleanup(func() {
		admin, err := sql.Open("postgres", dsn("postgres"))
		if err != nil {
			return
		}
		defer admin.Close()
		admin.Exec("SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1", name)
		admin.Exec("DROP DATABASE IF EXISTS " + name)
	})

	db, err := New(dsn(name))
	if err != nil {
		t.Fatalf("Failed to open Postgres database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func TestPostgresLifecycle(t *testing.T) {
	db := setupPostgresDB(t)
	ctx := context.Background()

	if db.Driver() != "postgres" {
		t.Fatalf("Expected postgres driver, got %s", db.Driver())
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}

	base := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		a := createTestAnalysis(fmt.Sprintf("pg-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := db.CreateAnalysis(ctx, a); err != nil {
			t.Fatalf("Failed to create analysis %d: %v", i, err)
		}
	}

	if err := db.CompleteAnalysis(ctx, "pg-1", testReport()); err != nil {
		t.Fatalf("Failed to complete analysis: %v", err)
	}
	got, err := db.GetAnalysis(ctx, "pg-1")
	if err != nil {
		t.Fatalf("Failed to get analysis: %v", err)
	}
	if got.Status != models.StatusCompleted || got.Report == nil || got.Report.Keywords[0].Term != "sat" {
		t.Errorf("Unexpected analysis after completion: %+v", got)
	}
	if !got.CreatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("Expected created_at %v, got %v", base.Add(time.Minute), got.CreatedAt)
	}

	list, err := db.ListAnalyses(ctx, 2, 1)
	if err != nil {
		t.Fatalf("Failed to list analyses: %v", err)
	}
	if len(list) != 2 || list[0].ID != "pg-1" || list[1].ID != "pg-0" {
		t.Errorf("Unexpected page: %+v", list)
	}

	count, err := db.CountAnalyses(ctx, models.StatusPending)
	if err != nil {
		t.Fatalf("Failed to count analyses: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 pending analyses, got %d", count)
	}

	if err := db.DeleteAnalysis(ctx, "pg-2"); err != nil {
		t.Fatalf("Failed to delete analysis: %v", err)
	}
	if _, err := db.GetAnalysis(ctx, "pg-2"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
