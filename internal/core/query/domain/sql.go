package domain

import (
	"fmt"
	"strings"
)

// SQL is a statement fragment paired with its ordered bind values.
// Statements always use the neutral "?" placeholder; a literal question
// mark is written as "??".
type SQL struct {
	Statement string
	Binds     []Value
}

func (SQL) isOperand() {}

// Raw builds a fragment from a statement and its binds.
func Raw(statement string, binds ...Value) SQL {
	return SQL{Statement: statement, Binds: binds}
}

// IsEmpty reports whether the fragment carries no statement text.
func (s SQL) IsEmpty() bool {
	return s.Statement == "" && len(s.Binds) == 0
}

// Join concatenates two fragments with a single space. The empty fragment is
// the identity, so Join is associative.
func (s SQL) Join(other SQL) SQL {
	return s.JoinWith(" ", other)
}

// JoinWith concatenates two fragments with sep.
func (s SQL) JoinWith(sep string, other SQL) SQL {
	if other.Statement == "" {
		return SQL{Statement: s.Statement, Binds: appendBinds(s.Binds, other.Binds)}
	}
	if s.Statement == "" {
		return SQL{Statement: other.Statement, Binds: appendBinds(s.Binds, other.Binds)}
	}
	return SQL{
		Statement: s.Statement + sep + other.Statement,
		Binds:     appendBinds(s.Binds, other.Binds),
	}
}

// Joined folds parts left to right with a single space.
func Joined(parts ...SQL) SQL {
	return JoinedWith(" ", parts...)
}

// JoinedWith folds parts left to right with sep.
func JoinedWith(sep string, parts ...SQL) SQL {
	var out SQL
	for _, p := range parts {
		out = out.JoinWith(sep, p)
	}
	return out
}

// Wrap surrounds the statement with parentheses.
func (s SQL) Wrap() SQL {
	return SQL{Statement: "(" + s.Statement + ")", Binds: s.Binds}
}

// IsSelect reports whether the statement is a SELECT.
func (s SQL) IsSelect() bool {
	stmt := strings.TrimLeft(s.Statement, " \t\n(")
	return len(stmt) >= 6 && strings.EqualFold(stmt[:6], "SELECT")
}

// Equal compares statements and binds.
func (s SQL) Equal(other SQL) bool {
	return s.Statement == other.Statement && BindsEqual(s.Binds, other.Binds)
}

// Validate checks that the placeholder count matches the bind count.
func (s SQL) Validate() error {
	if n := PlaceholderCount(s.Statement); n != len(s.Binds) {
		return fmt.Errorf("%w: statement %q has %d placeholders but %d binds", ErrInvalidQuery, s.Statement, n, len(s.Binds))
	}
	return nil
}

func (s SQL) String() string {
	if len(s.Binds) == 0 {
		return s.Statement
	}
	binds := make([]string, len(s.Binds))
	for i, b := range s.Binds {
		binds[i] = fmt.Sprint(b)
	}
	return fmt.Sprintf("%s [%s]", s.Statement, strings.Join(binds, ", "))
}

// Args returns the binds as driver arguments.
func (s SQL) Args() []any {
	args := make([]any, len(s.Binds))
	for i, b := range s.Binds {
		args[i] = b
	}
	return args
}

// PlaceholderCount counts bare "?" tokens. Escaped "??" pairs are skipped.
func PlaceholderCount(statement string) int {
	n := 0
	for i := 0; i < len(statement); i++ {
		if statement[i] != '?' {
			continue
		}
		if i+1 < len(statement) && statement[i+1] == '?' {
			i++
			continue
		}
		n++
	}
	return n
}

func appendBinds(a, b []Value) []Value {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]Value, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
