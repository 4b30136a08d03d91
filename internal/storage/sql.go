package storage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/claude/hevysync/internal/models"
	"github.com/claude/hevysync/internal/reconcile"
)

// dialect captures the few places PostgreSQL and SQLite disagree.
type dialect struct {
	name        string
	placeholder func(n int) string
	types       map[models.ColumnType]string
}

var postgresDialect = dialect{
	name:        "postgres",
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	types: map[models.ColumnType]string{
		models.ColumnText:      "TEXT",
		models.ColumnInteger:   "BIGINT",
		models.ColumnReal:      "DOUBLE PRECISION",
		models.ColumnTimestamp: "TIMESTAMP",
	},
}

var sqliteDialect = dialect{
	name:        "sqlite",
	placeholder: func(int) string { return "?" },
	types: map[models.ColumnType]string{
		models.ColumnText:      "TEXT",
		models.ColumnInteger:   "INTEGER",
		models.ColumnReal:      "REAL",
		models.ColumnTimestamp: "TEXT",
	},
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteIdent validates and double-quotes a table or column name.
func quoteIdent(name string) (string, error) {
	if !identRe.MatchString(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	return `"` + name + `"`, nil
}

func quoteIdents(names []string) (string, error) {
	quoted := make([]string, len(names))
	for i, n := range names {
		q, err := quoteIdent(n)
		if err != nil {
			return "", err
		}
		quoted[i] = q
	}
	return strings.Join(quoted, ", "), nil
}

func (d dialect) createTable(table string, columns []models.Column) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("table %s has no columns", table)
	}
	qt, err := quoteIdent(table)
	if err != nil {
		return "", err
	}
	defs := make([]string, len(columns))
	for i, c := range columns {
		qc, err := quoteIdent(c.Name)
		if err != nil {
			return "", err
		}
		typ, ok := d.types[c.Type]
		if !ok {
			return "", fmt.Errorf("column %s: unsupported type %q", c.Name, c.Type)
		}
		defs[i] = qc + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", qt, strings.Join(defs, ", ")), nil
}

// selectPage orders by the selected columns so that LIMIT/OFFSET windows are stable.
func (d dialect) selectPage(table string, columns []string, offset, limit int) (string, error) {
	qt, err := quoteIdent(table)
	if err != nil {
		return "", err
	}
	cols, err := quoteIdents(columns)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT %d OFFSET %d", cols, qt, cols, limit, offset), nil
}

func (d dialect) deleteWhere(table string, f reconcile.Filter) (string, []any, error) {
	qt, err := quoteIdent(table)
	if err != nil {
		return "", nil, err
	}
	qc, err := quoteIdent(f.Column)
	if err != nil {
		return "", nil, err
	}
	switch f.Op {
	case reconcile.FilterNotEqual:
		return fmt.Sprintf("DELETE FROM %s WHERE %s <> %s", qt, qc, d.placeholder(1)), []any{f.Value}, nil
	default:
		return "", nil, fmt.Errorf("unsupported filter op %q", f.Op)
	}
}

// insertBatch builds one multi-VALUES INSERT for a chunk.
func (d dialect) insertBatch(table string, columns []string, rows [][]any) (string, []any, error) {
	qt, err := quoteIdent(table)
	if err != nil {
		return "", nil, err
	}
	cols, err := quoteIdents(columns)
	if err != nil {
		return "", nil, err
	}

	args := make([]any, 0, len(rows)*len(columns))
	valueStrings := make([]string, 0, len(rows))
	n := 0
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		ph := make([]string, len(row))
		for j := range row {
			n++
			ph[j] = d.placeholder(n)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		args = append(args, row...)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", qt, cols, strings.Join(valueStrings, ","))
	return query, args, nil
}

func (d dialect) dropColumn(table, column string) (string, error) {
	qt, err := quoteIdent(table)
	if err != nil {
		return "", err
	}
	qc, err := quoteIdent(column)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", qt, qc), nil
}
