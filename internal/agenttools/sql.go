package agenttools

import (
	"context"
	"strings"

	llmtools "github.com/flitsinc/go-llms/tools"

	"github.com/flitsinc/go-calendar/internal/sqlexec"
)

// Executor is the SQL gateway as seen by the tools.
type Executor interface {
	Execute(ctx context.Context, sqlText string) sqlexec.Result
}

type RunSQLParams struct {
	SQL string `json:"sql" description:"Exactly one SQLite statement to run against the calendar database"`
}

// RunSQLTool hands model-written SQL to the gateway. Failed statements are
// returned as a successful tool call carrying success=false so the model
// can read the error and try again.
func RunSQLTool(exec Executor) llmtools.Tool {
	return llmtools.Func(
		"Run SQL",
		"Run one SQLite statement against the calendar database and return rows or the affected row count",
		"run_sql",
		func(r llmtools.Runner, p RunSQLParams) llmtools.Result {
			if exec == nil {
				return llmtools.Errorf("sql gateway unavailable")
			}
			stmt := strings.TrimSpace(p.SQL)
			if stmt == "" {
				return llmtools.Errorf("sql is required")
			}
			r.Report("running sql")
			return llmtools.Success(exec.Execute(r.Context(), stmt))
		},
	)
}

type DescribeSchemaParams struct {
	Table string `json:"table,omitempty" description:"Optional table name; omit to describe every table"`
}

// DescribeSchemaTool lists the CREATE statements of the calendar tables.
func DescribeSchemaTool(exec Executor) llmtools.Tool {
	return llmtools.Func(
		"Describe schema",
		"List the tables of the calendar database with their CREATE statements",
		"describe_schema",
		func(r llmtools.Runner, p DescribeSchemaParams) llmtools.Result {
			if exec == nil {
				return llmtools.Errorf("sql gateway unavailable")
			}
			query := "SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
			if table := strings.TrimSpace(p.Table); table != "" {
				query = "SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name = '" + strings.ReplaceAll(table, "'", "''") + "'"
			}
			res := exec.Execute(r.Context(), query)
			if !res.Success {
				return llmtools.Errorf("describe schema: %s", res.Error)
			}
			return llmtools.Success(map[string]any{"tables": res.Rows})
		},
	)
}
