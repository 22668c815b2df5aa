package grammar

import (
	"fmt"
	"strings"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

// positionBinds rewrites the n-th bare "?" into the dialect placeholder for
// n and collapses "??" into a literal "?". A count mismatch between
// placeholders and binds is a bug in the grammar and panics.
func positionBinds(sql domain.SQL, placeholder func(n int) string) domain.SQL {
	var b strings.Builder
	b.Grow(len(sql.Statement) + len(sql.Binds))

	stmt := sql.Statement
	n := 0
	for i := 0; i < len(stmt); i++ {
		ch := stmt[i]
		if ch != '?' {
			b.WriteByte(ch)
			continue
		}
		if i+1 < len(stmt) && stmt[i+1] == '?' {
			b.WriteByte('?')
			i++
			continue
		}
		n++
		b.WriteString(placeholder(n))
	}

	if n != len(sql.Binds) {
		panic(fmt.Sprintf("grammar: %d placeholders but %d binds in %q", n, len(sql.Binds), sql.Statement))
	}
	return domain.SQL{Statement: b.String(), Binds: sql.Binds}
}
