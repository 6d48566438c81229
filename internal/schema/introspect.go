package schema

import (
	"context"
	"fmt"
	"sort"

	"github.com/koustreak/priam/internal/database"
	"github.com/koustreak/priam/internal/errs"
)

// CassandraIntrospector implements Reader using the system_schema keyspace
type CassandraIntrospector struct {
	exec database.Executor
}

// NewCassandraIntrospector creates a new introspector running on exec
func NewCassandraIntrospector(exec database.Executor) *CassandraIntrospector {
	return &CassandraIntrospector{exec: exec}
}

// ListTables returns all table names in the keyspace, sorted
func (c *CassandraIntrospector) ListTables(ctx context.Context, keyspace string) ([]string, error) {
	const q = `SELECT table_name FROM system_schema.tables WHERE keyspace_name = ?`

	rows, err := c.exec.Execute(ctx, q, []any{keyspace}, database.QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		name, _ := row["table_name"].(string)
		if name != "" {
			tables = append(tables, name)
		}
	}
	sort.Strings(tables)
	return tables, nil
}

// TableExists checks whether a specific table exists
func (c *CassandraIntrospector) TableExists(ctx context.Context, keyspace, table string) (bool, error) {
	const q = `SELECT table_name FROM system_schema.tables WHERE keyspace_name = ? AND table_name = ?`

	rows, err := c.exec.Execute(ctx, q, []any{keyspace, table}, database.QueryOptions{})
	if err != nil {
		return false, fmt.Errorf("table exists check: %w", err)
	}
	return len(rows) > 0, nil
}

// InspectTable returns column details for a single table. Columns are
// ordered partition key first, then clustering key, then the rest by name.
func (c *CassandraIntrospector) InspectTable(ctx context.Context, keyspace, table string) (*TableInfo, error) {
	const q = `
		SELECT column_name, type, kind, position, clustering_order
		FROM system_schema.columns
		WHERE keyspace_name = ? AND table_name = ?`

	rows, err := c.exec.Execute(ctx, q, []any{keyspace, table}, database.QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("inspect table %s.%s: %w", keyspace, table, err)
	}
	if len(rows) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %s.%s not found", keyspace, table)
	}

	info := &TableInfo{Keyspace: keyspace, Name: table}
	for _, row := range rows {
		col := ColumnInfo{Position: -1}
		col.Name, _ = row["column_name"].(string)
		col.DataType, _ = row["type"].(string)
		kind, _ := row["kind"].(string)
		col.Kind = ColumnKind(kind)
		col.Order, _ = row["clustering_order"].(string)
		if pos, ok := asInt(row["position"]); ok && pos >= 0 {
			col.Position = pos
		}
		info.Columns = append(info.Columns, col)
	}

	sort.SliceStable(info.Columns, func(i, j int) bool {
		a, b := info.Columns[i], info.Columns[j]
		if rank(a.Kind) != rank(b.Kind) {
			return rank(a.Kind) < rank(b.Kind)
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.Name < b.Name
	})

	for _, col := range info.Columns {
		switch col.Kind {
		case ColumnPartitionKey:
			info.PartitionKey = append(info.PartitionKey, col.Name)
		case ColumnClustering:
			info.ClusteringKey = append(info.ClusteringKey, col.Name)
		}
	}
	return info, nil
}

func rank(k ColumnKind) int {
	switch k {
	case ColumnPartitionKey:
		return 0
	case ColumnClustering:
		return 1
	case ColumnStatic:
		return 2
	default:
		return 3
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	}
	return 0, false
}
