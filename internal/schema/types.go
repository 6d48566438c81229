package schema

// ColumnKind is the role a column plays in a table.
type ColumnKind string

const (
	ColumnPartitionKey ColumnKind = "partition_key"
	ColumnClustering   ColumnKind = "clustering"
	ColumnRegular      ColumnKind = "regular"
	ColumnStatic       ColumnKind = "static"
)

// ColumnInfo describes a single column in a table
type ColumnInfo struct {
	Name     string
	DataType string // cql type: text, bigint, timestamp, map<text, int>, etc.
	Kind     ColumnKind
	Position int    // position within the partition or clustering key, -1 otherwise
	Order    string // clustering order: asc, desc or none
}

// TableInfo describes a table and its columns
type TableInfo struct {
	Keyspace      string
	Name          string
	Columns       []ColumnInfo
	PartitionKey  []string
	ClusteringKey []string
}

// KeyspaceInfo is the full introspected keyspace
type KeyspaceInfo struct {
	Name   string
	Tables []TableInfo
}
