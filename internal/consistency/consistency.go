// Package consistency is the closed vocabulary of Cassandra consistency
// levels understood by priam, with lookup by either of the two spellings
// callers use in configuration ("LOCAL_QUORUM" and "localQuorum").
package consistency

import (
	"strings"

	"github.com/gocql/gocql"

	"github.com/koustreak/priam/internal/errs"
)

// Level is a consistency level. The zero value means "not set" and lets
// the client default apply.
type Level int

const (
	Unset Level = iota
	Any
	One
	Two
	Three
	Quorum
	All
	LocalQuorum
	EachQuorum
	LocalOne
)

type spelling struct {
	upper, camel string
	client       gocql.Consistency
}

var spellings = map[Level]spelling{
	Any:         {"ANY", "any", gocql.Any},
	One:         {"ONE", "one", gocql.One},
	Two:         {"TWO", "two", gocql.Two},
	Three:       {"THREE", "three", gocql.Three},
	Quorum:      {"QUORUM", "quorum", gocql.Quorum},
	All:         {"ALL", "all", gocql.All},
	LocalQuorum: {"LOCAL_QUORUM", "localQuorum", gocql.LocalQuorum},
	EachQuorum:  {"EACH_QUORUM", "eachQuorum", gocql.EachQuorum},
	LocalOne:    {"LOCAL_ONE", "localOne", gocql.LocalOne},
}

// names holds both spellings of every level plus a folded key used for
// case-insensitive lookups. Built once, never mutated.
var (
	names  = make(map[string]Level, 2*len(spellings))
	folded = make(map[string]Level, len(spellings))
)

func init() {
	for lvl, s := range spellings {
		names[s.upper] = lvl
		names[s.camel] = lvl
		folded[fold(s.upper)] = lvl
	}
}

// fold drops underscores and case: "LOCAL_QUORUM", "localQuorum" and
// "local_quorum" all fold to "localquorum".
func fold(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

// Parse resolves a level name. Exact spellings from Names are tried first,
// then a case-insensitive match.
func Parse(name string) (Level, error) {
	if lvl, ok := names[name]; ok {
		return lvl, nil
	}
	if lvl, ok := folded[fold(strings.TrimSpace(name))]; ok {
		return lvl, nil
	}
	return Unset, errs.Newf(errs.ErrKindInvalidInput, "unknown consistency level %q", name)
}

// Names returns a copy of the name table, both spellings included.
func Names() map[string]Level {
	out := make(map[string]Level, len(names))
	for k, v := range names {
		out[k] = v
	}
	return out
}

// String returns the upper-case name ("LOCAL_QUORUM"), or "UNSET".
func (l Level) String() string {
	if s, ok := spellings[l]; ok {
		return s.upper
	}
	return "UNSET"
}

// IsSet reports whether l names a real level.
func (l Level) IsSet() bool {
	_, ok := spellings[l]
	return ok
}

// Gocql returns the client constant for l. Unset yields the zero constant
// (gocql.Any), so callers check IsSet first.
func (l Level) Gocql() gocql.Consistency {
	return spellings[l].client
}

// FromGocql maps a client constant back to a Level.
func FromGocql(c gocql.Consistency) Level {
	for lvl, s := range spellings {
		if s.client == c {
			return lvl
		}
	}
	return Unset
}

// UnmarshalText lets Level be decoded from YAML/JSON/flags.
func (l *Level) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*l = Unset
		return nil
	}
	lvl, err := Parse(string(text))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}

// MarshalText is the inverse of UnmarshalText.
func (l Level) MarshalText() ([]byte, error) {
	if !l.IsSet() {
		return []byte{}, nil
	}
	return []byte(l.String()), nil
}
