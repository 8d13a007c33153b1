// Package sqlexec runs single SQL statements against the calendar store and
// reports the outcome as data.
//
// The gateway executes whatever text it is given. Statements are not parsed,
// parameterized or checked against an allow-list; the only classification is
// the SELECT prefix test that decides between a read and a write. Callers
// feeding it model-generated SQL accept that risk.
package sqlexec

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/flitsinc/go-calendar/internal/reqctx"
)

type Result struct {
	Success      bool             `json:"success"`
	SQL          string           `json:"sql"`
	Read         bool             `json:"-"`
	Rows         []map[string]any `json:"rows"`
	RowsAffected int64            `json:"rows_affected"`
	Error        string           `json:"error,omitempty"`
}

// MarshalJSON omits rows for writes and failures and always emits a rows
// array for successful reads, even when empty.
func (r Result) MarshalJSON() ([]byte, error) {
	type wire struct {
		Success      bool              `json:"success"`
		SQL          string            `json:"sql"`
		Rows         *[]map[string]any `json:"rows,omitempty"`
		RowsAffected int64             `json:"rows_affected"`
		Error        string            `json:"error,omitempty"`
	}
	w := wire{Success: r.Success, SQL: r.SQL, RowsAffected: r.RowsAffected, Error: r.Error}
	if r.Success && r.Read {
		rows := r.Rows
		if rows == nil {
			rows = []map[string]any{}
		}
		w.Rows = &rows
	}
	return json.Marshal(w)
}

type Gateway struct {
	db     *sql.DB
	writes sync.Locker
	log    *zap.Logger
}

// NewGateway returns a gateway over db. writes serializes write statements
// with every other writer of the store; nil means no serialization.
func NewGateway(db *sql.DB, writes sync.Locker, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{db: db, writes: writes, log: log}
}

// IsRead reports whether stmt is treated as a read.
func IsRead(stmt string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(stmt)), "SELECT")
}

// Execute runs sqlText and never returns an error or panics; failures are
// reported in the Result.
func (g *Gateway) Execute(ctx context.Context, sqlText string) (res Result) {
	res = Result{SQL: sqlText}
	if g == nil || g.db == nil {
		res.Error = "sql gateway has no database"
		return res
	}
	log := reqctx.Logger(ctx, g.log)
	defer func() {
		if r := recover(); r != nil {
			res = Result{SQL: sqlText, Error: fmt.Sprintf("execute: %v", r)}
		}
		if res.Success {
			log.Debug("sql executed", zap.String("sql", sqlText), zap.Bool("read", res.Read), zap.Int("rows", len(res.Rows)), zap.Int64("rows_affected", res.RowsAffected))
		} else {
			log.Warn("sql failed", zap.String("sql", sqlText), zap.String("error", res.Error))
		}
	}()

	stmt := strings.TrimSpace(sqlText)
	if stmt == "" {
		res.Error = "empty statement"
		return res
	}

	if IsRead(stmt) {
		res.Read = true
		rows, err := g.query(ctx, stmt)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.Success = true
		res.Rows = rows
		return res
	}

	n, err := g.exec(ctx, stmt)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.RowsAffected = n
	return res
}

func (g *Gateway) query(ctx context.Context, stmt string) ([]map[string]any, error) {
	rows, err := g.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) exec(ctx context.Context, stmt string) (int64, error) {
	if g.writes != nil {
		g.writes.Lock()
		defer g.writes.Unlock()
	}
	result, err := g.db.ExecContext(ctx, stmt)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}
