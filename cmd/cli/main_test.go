package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aryan0dhankhar/teamspace/pkg/config"
	"github.com/aryan0dhankhar/teamspace/pkg/database"
)

type cliHarness struct {
	mock     sqlmock.Sqlmock
	open     openFunc
	opened   int
	migrated int
	closed   int
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := database.Open(sqlDB, gormlogger.Silent)
	require.NoError(t, err)

	h := &cliHarness{mock: mock}
	cfg := &config.Config{JWTSecret: "secret", TokenTTL: time.Hour, CatalogCacheTTL: time.Minute}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.open = func(context.Context) (*env, error) {
		h.opened++
		return newEnv(cfg, log, db,
			func(context.Context) error { h.migrated++; return nil },
			func() error { h.closed++; return nil },
		), nil
	}
	return h
}

func (h *cliHarness) run(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCommand(h.open, &out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestMigrateRunsAndCloses(t *testing.T) {
	h := newCLIHarness(t)

	_, err := h.run("migrate")
	require.NoError(t, err)
	assert.Equal(t, 1, h.migrated)
	assert.Equal(t, 1, h.closed)
}

func TestCatalogListPrintsTable(t *testing.T) {
	h := newCLIHarness(t)
	rows := sqlmock.NewRows([]string{"llm_name", "fid", "model_type", "max_tokens", "tags", "status"}).
		AddRow("qwen-plus", "Tongyi-Qianwen", "chat", 32768, "LLM,CHAT", "1").
		AddRow("text-embedding-v2", "Tongyi-Qianwen", "embedding", 2048, "TEXT EMBEDDING", "1")
	h.mock.ExpectQuery(`SELECT \* FROM "llm" ORDER BY fid ASC, llm_name ASC`).WillReturnRows(rows)

	out, err := h.run("catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "FACTORY")
	assert.Contains(t, out, "qwen-plus")
	assert.Contains(t, out, "text-embedding-v2")
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestRequiredFlagsAreEnforcedBeforeConnecting(t *testing.T) {
	h := newCLIHarness(t)

	_, err := h.run("team", "create", "--owner-email", "ann@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")

	_, err = h.run("user", "create", "--email", "ann@example.com")
	require.Error(t, err)
	assert.Zero(t, h.opened)
}
