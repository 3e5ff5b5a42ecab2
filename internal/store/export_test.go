package store

import "database/sql"

// DB exposes the underlying handle to external-package tests.
func (s *SQLiteStore) DB() *sql.DB { return s.db }
