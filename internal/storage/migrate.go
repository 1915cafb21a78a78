package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

// pq error codes that mean the object is already in place
var alreadyExistsCodes = map[pq.ErrorCode]bool{
	"42P07": true, // duplicate_table
	"42710": true, // duplicate_object
	"42P06": true, // duplicate_schema
	"42701": true, // duplicate_column
	"42P16": true, // invalid_table_definition, multiple primary keys
	"23505": true, // unique_violation
}

var commentLine = regexp.MustCompile(`(?m)^\s*--.*$`)

// MigrateResult counts executed and skipped statements
type MigrateResult struct {
	Executed int
	Skipped  int
}

// Migrate applies the embedded schema one statement at a time and can be run repeatedly
func Migrate(ctx context.Context, db *sqlx.DB, logger *slog.Logger) (MigrateResult, error) {
	var res MigrateResult

	for i, stmt := range SplitStatements(schemaSQL) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if isAlreadyExists(err) {
				res.Skipped++
				logger.Debug("Schema statement skipped",
					slog.Int("statement", i+1),
					slog.Any("error", err),
				)
				continue
			}
			return res, fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
		res.Executed++
	}

	logger.Info("Schema migrated",
		slog.Int("executed", res.Executed),
		slog.Int("skipped", res.Skipped),
	)
	return res, nil
}

// SplitStatements splits a SQL script on semicolons outside quotes, dropping comment lines
func SplitStatements(script string) []string {
	script = commentLine.ReplaceAllString(script, "")

	var (
		stmts   []string
		buf     strings.Builder
		inQuote bool
	)
	for _, r := range script {
		switch {
		case r == '\'':
			inQuote = !inQuote
			buf.WriteRune(r)
		case r == ';' && !inQuote:
			if s := strings.TrimSpace(buf.String()); s != "" {
				stmts = append(stmts, s)
			}
			buf.Reset()
		default:
			buf.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}

func isAlreadyExists(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return alreadyExistsCodes[pqErr.Code]
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
