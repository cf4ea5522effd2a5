package store

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestApplyOptionsStatementCache(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		wantMode pgx.QueryExecMode
		wantCap  int
	}{
		{"enabled", 64, pgx.QueryExecModeCacheStatement, 64},
		{"disabled", 0, pgx.QueryExecModeDescribeExec, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := pgxpool.ParseConfig("postgres://u:p@localhost:5432/db?sslmode=disable")
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			applyOptions(cfg, Options{MaxConns: 4, MinConns: 1, StatementCacheCapacity: tt.capacity})

			if cfg.ConnConfig.DefaultQueryExecMode != tt.wantMode {
				t.Fatalf("exec mode = %v, want %v", cfg.ConnConfig.DefaultQueryExecMode, tt.wantMode)
			}
			if cfg.ConnConfig.StatementCacheCapacity != tt.wantCap {
				t.Fatalf("cache capacity = %d, want %d", cfg.ConnConfig.StatementCacheCapacity, tt.wantCap)
			}
			if cfg.MaxConns != 4 || cfg.MinConns != 1 {
				t.Fatalf("pool sizes = %d/%d, want 4/1", cfg.MaxConns, cfg.MinConns)
			}
		})
	}
}

func TestApplyOptionsNegativeCacheKeepsDriverDefault(t *testing.T) {
	cfg, err := pgxpool.ParseConfig("postgres://u:p@localhost:5432/db")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	mode, capacity := cfg.ConnConfig.DefaultQueryExecMode, cfg.ConnConfig.StatementCacheCapacity
	applyOptions(cfg, Options{StatementCacheCapacity: -1})
	if cfg.ConnConfig.DefaultQueryExecMode != mode || cfg.ConnConfig.StatementCacheCapacity != capacity {
		t.Fatalf("driver defaults changed")
	}
}
