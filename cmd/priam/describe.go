package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/koustreak/priam/internal/schema"
)

var describeCmd = &cobra.Command{
	Use:   "describe [table]",
	Short: "List the tables of the keyspace, or the columns of one table",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDescribe,
}

func init() {
	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.session(cmd.Context())
	if err != nil {
		return err
	}
	reader := schema.NewCassandraIntrospector(s)
	ks := a.cfg.Pool.Keyspace

	if len(args) == 1 {
		table, err := reader.InspectTable(cmd.Context(), ks, args[0])
		if err != nil {
			return err
		}
		return printTable(cmd.OutOrStdout(), table)
	}

	info, err := schema.InspectKeyspace(cmd.Context(), reader, ks)
	if err != nil {
		return err
	}
	for i := range info.Tables {
		t := &info.Tables[i]
		fmt.Fprintf(cmd.OutOrStdout(), "%s.%s  PRIMARY KEY ((%s)%s)\n",
			t.Keyspace, t.Name, strings.Join(t.PartitionKey, ", "), clusteringSuffix(t.ClusteringKey))
	}
	return nil
}

func printTable(w io.Writer, t *schema.TableInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "COLUMN\tTYPE\tKIND\tORDER\n")
	for _, c := range t.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, c.DataType, c.Kind, c.Order)
	}
	return tw.Flush()
}

func clusteringSuffix(cols []string) string {
	if len(cols) == 0 {
		return ""
	}
	return ", " + strings.Join(cols, ", ")
}
