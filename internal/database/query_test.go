package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/priam/internal/errs"
)

func TestSelectBuilder_Build(t *testing.T) {
	tests := []struct {
		name     string
		builder  *SelectBuilder
		wantCQL  string
		wantArgs []any
	}{
		{
			name:    "select star",
			builder: Select("users"),
			wantCQL: `SELECT * FROM "users"`,
		},
		{
			name:    "keyspace and columns",
			builder: Select("users").Keyspace("app").Columns("id", "name"),
			wantCQL: `SELECT "id", "name" FROM "app"."users"`,
		},
		{
			name: "where order limit filtering",
			builder: Select("events").
				Where("tenant", "=", P("acme", HintASCII)).
				Where("ts", ">=", int64(1700000000000)).
				OrderBy("ts", Desc).
				Limit(50).
				AllowFiltering(),
			wantCQL:  `SELECT * FROM "events" WHERE "tenant" = ? AND "ts" >= ? ORDER BY "ts" DESC LIMIT ? ALLOW FILTERING`,
			wantArgs: []any{P("acme", HintASCII), int64(1700000000000), 50},
		},
		{
			name:     "collection operators",
			builder:  Select("docs").Where("tags", "contains", "go").Where("attrs", "contains  key", "lang"),
			wantCQL:  `SELECT * FROM "docs" WHERE "tags" CONTAINS ? AND "attrs" CONTAINS KEY ?`,
			wantArgs: []any{"go", "lang"},
		},
		{
			name:    "quotes identifiers",
			builder: Select(`we"ird`),
			wantCQL: `SELECT * FROM "we""ird"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cql, args, err := tt.builder.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantCQL, cql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSelectBuilder_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		builder *SelectBuilder
	}{
		{"bad operator", Select("users").Where("id", "; DROP TABLE users; --", 1)},
		{"like is not cql", Select("users").Where("name", "LIKE", "a%")},
		{"non-positive limit", Select("users").Limit(0)},
		{"missing table", Select("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.builder.Build()
			assert.True(t, errs.IsInvalidInput(err))
		})
	}
}
