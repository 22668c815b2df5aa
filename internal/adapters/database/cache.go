package database

import (
	"context"
	"database/sql"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// StatementCache keeps prepared statements keyed by their text. An evicted
// statement is closed once every caller holding it has released it.
type StatementCache struct {
	cache *lru.Cache[string, *cachedStmt]
	mu    sync.Mutex
}

type cachedStmt struct {
	stmt    *sql.Stmt
	refs    int
	evicted bool
}

// NewStatementCache creates a cache holding up to size statements.
func NewStatementCache(size int) (*StatementCache, error) {
	// the callback runs inside Add and Purge, which hold mu
	cache, err := lru.NewWithEvict(size, func(_ string, e *cachedStmt) {
		e.evicted = true
		if e.refs == 0 {
			e.stmt.Close()
		}
	})
	if err != nil {
		return nil, err
	}
	return &StatementCache{cache: cache}, nil
}

// GetOrPrepare returns the cached statement for query, preparing it on db
// on a miss. The caller must call release when done with the statement.
// Rows already opened from a released statement stay readable.
func (s *StatementCache) GetOrPrepare(ctx context.Context, db *sql.DB, query string) (stmt *sql.Stmt, release func(), err error) {
	s.mu.Lock()
	e, ok := s.cache.Get(query)
	if ok {
		e.refs++
		s.mu.Unlock()
		return e.stmt, s.releaser(e), nil
	}
	s.mu.Unlock()

	prepared, err := db.PrepareContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.cache.Get(query); ok {
		// lost a race with another caller preparing the same text
		prepared.Close()
		e.refs++
		return e.stmt, s.releaser(e), nil
	}
	e = &cachedStmt{stmt: prepared, refs: 1}
	s.cache.Add(query, e)
	return e.stmt, s.releaser(e), nil
}

func (s *StatementCache) releaser(e *cachedStmt) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			e.refs--
			if e.evicted && e.refs == 0 {
				e.stmt.Close()
			}
		})
	}
}

// Len returns the number of cached statements.
func (s *StatementCache) Len() int {
	return s.cache.Len()
}

// Close evicts every statement. Statements still in use close on release.
func (s *StatementCache) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
}
