package memory

import (
	"context"
	"database/sql"
)

// DB exposes the internal *sql.DB for test helpers in memory_test.
// This file only compiles during `go test`.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FailExec makes every subsequent write return err.
func (s *Store) FailExec(err error) {
	s.hooks.exec = func(context.Context, execer, string, ...any) (sql.Result, error) {
		return nil, err
	}
}

// FailQuery makes every subsequent hooked read return err.
func (s *Store) FailQuery(err error) {
	s.hooks.queryIt = func(context.Context, queryer, string, ...any) (rowScanner, error) {
		return nil, err
	}
}

// SanitizeFTS exposes sanitizeFTS for tests.
var SanitizeFTS = sanitizeFTS
