package schema

import (
	"context"
	"fmt"
)

// Reader is the interface for introspecting a keyspace
type Reader interface {
	// ListTables returns all tables in the given keyspace
	ListTables(ctx context.Context, keyspace string) ([]string, error)

	// TableExists checks whether a table exists
	TableExists(ctx context.Context, keyspace, table string) (bool, error)

	// InspectTable returns full column info for a table
	InspectTable(ctx context.Context, keyspace, table string) (*TableInfo, error)
}

// InspectKeyspace returns every table of keyspace with its columns.
func InspectKeyspace(ctx context.Context, r Reader, keyspace string) (*KeyspaceInfo, error) {
	tables, err := r.ListTables(ctx, keyspace)
	if err != nil {
		return nil, err
	}

	info := &KeyspaceInfo{Name: keyspace}
	for _, table := range tables {
		ti, err := r.InspectTable(ctx, keyspace, table)
		if err != nil {
			return nil, fmt.Errorf("inspecting table %q: %w", table, err)
		}
		info.Tables = append(info.Tables, *ti)
	}
	return info, nil
}
