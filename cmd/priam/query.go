package main

import (
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/koustreak/priam/internal/consistency"
	"github.com/koustreak/priam/internal/database"
	"github.com/koustreak/priam/internal/database/cassandra"
	"github.com/koustreak/priam/internal/errs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	queryParams      []string
	queryFetchSize   int
	queryConsistency string
	queryJSONStrings bool
	queryIdempotent  bool

	selectColumns []string
	selectEquals  []string
	selectLimit   int
	selectOrder   string
	selectFilter  bool
)

var queryCmd = &cobra.Command{
	Use:   "query <cql>",
	Short: "Execute one CQL statement and print the rows as JSON lines",
	Example: `  priam query -k app "SELECT * FROM users WHERE id = ?" --param uuid:6ba7b810-9dad-11d1-80b4-00c04fd430c8
  priam query -k app "INSERT INTO events (id, ts) VALUES (?, ?)" --param int:1 --param timestamp:1700000000000`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

var selectCmd = &cobra.Command{
	Use:   "select <table>",
	Short: "Build and run a SELECT from flags",
	Example: `  priam select -k app events --columns id,ts --eq tenant=acme --order ts:desc --limit 20`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSelect,
}

func init() {
	for _, c := range []*cobra.Command{queryCmd, selectCmd} {
		c.Flags().IntVar(&queryFetchSize, "fetch-size", 0, "Page size for this statement")
		c.Flags().StringVar(&queryConsistency, "cl", "", "Consistency level for this statement")
		c.Flags().BoolVar(&queryJSONStrings, "json-strings", false, "Decode text columns holding JSON documents")
		rootCmd.AddCommand(c)
	}
	queryCmd.Flags().StringArrayVar(&queryParams, "param", nil, "Bind value, optionally typed as <type>:<value>")
	queryCmd.Flags().BoolVar(&queryIdempotent, "idempotent", false, "Mark the statement safe to retry")

	selectCmd.Flags().StringSliceVar(&selectColumns, "columns", nil, "Columns to select (default *)")
	selectCmd.Flags().StringArrayVar(&selectEquals, "eq", nil, "Equality restriction <column>=<value>")
	selectCmd.Flags().IntVar(&selectLimit, "limit", 0, "Row limit")
	selectCmd.Flags().StringVar(&selectOrder, "order", "", "Clustering order <column>[:asc|desc]")
	selectCmd.Flags().BoolVar(&selectFilter, "allow-filtering", false, "Append ALLOW FILTERING")
}

func runQuery(cmd *cobra.Command, args []string) error {
	params := make([]any, 0, len(queryParams))
	for _, raw := range queryParams {
		params = append(params, parseParam(raw))
	}
	return execute(cmd, args[0], params)
}

func runSelect(cmd *cobra.Command, args []string) error {
	b := database.Select(args[0]).Columns(selectColumns...)
	if keyspace != "" {
		b = b.Keyspace(keyspace)
	}
	for _, eq := range selectEquals {
		col, val, ok := strings.Cut(eq, "=")
		if !ok {
			return errs.Newf(errs.ErrKindInvalidInput, "--eq %q: expected <column>=<value>", eq)
		}
		b = b.Where(strings.TrimSpace(col), "=", parseParam(val))
	}
	if selectOrder != "" {
		col, dir, _ := strings.Cut(selectOrder, ":")
		order := database.Asc
		if strings.EqualFold(dir, "desc") {
			order = database.Desc
		}
		b = b.OrderBy(col, order)
	}
	if selectLimit > 0 {
		b = b.Limit(selectLimit)
	}
	if selectFilter {
		b = b.AllowFiltering()
	}

	statement, params, err := b.Build()
	if err != nil {
		return err
	}
	return execute(cmd, statement, params)
}

func execute(cmd *cobra.Command, statement string, params []any) error {
	opts := database.QueryOptions{FetchSize: queryFetchSize, Idempotent: queryIdempotent}
	if queryConsistency != "" {
		lvl, err := consistency.Parse(queryConsistency)
		if err != nil {
			return err
		}
		opts.Consistency = lvl
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.session(cmd.Context())
	if err != nil {
		return err
	}
	s.ResultOptions.DeserializeJSONStrings = queryJSONStrings

	rows, err := s.Execute(cmd.Context(), statement, params, opts)
	if err != nil {
		return err
	}
	return printRows(cmd.OutOrStdout(), rows)
}

// parseParam reads "<type>:<value>". Without a known type prefix the whole
// string is the value.
func parseParam(raw string) any {
	hint, value, ok := strings.Cut(raw, ":")
	if !ok {
		return raw
	}
	h := database.Hint(strings.ToLower(hint))
	if _, known := cassandra.DataTypes[h]; !known {
		return raw
	}
	return database.P(value, h)
}

func printRows(w io.Writer, rows []map[string]any) error {
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(0 rows)")
		return err
	}
	return nil
}
