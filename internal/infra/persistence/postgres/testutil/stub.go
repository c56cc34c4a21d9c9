// Package testutil provides a stub database/sql driver that understands the
// handful of statements the postgres snapshot store and advisory locker issue.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// StubConn records statements and keeps tables and advisory locks in memory.
// A single StubConn backs every connection of the sql.DB, so lock state is
// shared the way a real server shares it.
type StubConn struct {
	mu sync.Mutex

	Execs      []string
	Tables     map[string][]map[string]any
	Locks      map[string]bool
	FailExec   bool
	FailPing   bool
	FailBegin  bool
	FailCommit bool
	FailLock   bool
	RowsErr    error
	FailTables map[string]bool
}

var stubSeq atomic.Int64

// NewStubDB registers a fresh stub driver and opens a sql.DB on it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := NewStubConn()
	db, err := sql.Open(Register(conn), "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// NewStubConn returns an empty stub connection.
func NewStubConn() *StubConn {
	return &StubConn{Tables: make(map[string][]map[string]any), Locks: make(map[string]bool)}
}

// Register registers conn under a unique driver name and returns the name.
func Register(conn *StubConn) string {
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	return name
}

// Held reports whether the named advisory lock is held.
func (c *StubConn) Held(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Locks[key]
}

// Rows returns a copy of the rows stored in table.
func (c *StubConn) Rows(table string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.Tables[table]))
	for _, row := range c.Tables[table] {
		cp := make(map[string]any, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return &session{c: d.conn}, nil }

// session is one pooled connection over the shared StubConn.
type session struct {
	c *StubConn
}

func (s *session) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (s *session) Close() error                        { return nil }
func (s *session) Begin() (driver.Tx, error) {
	return s.BeginTx(context.Background(), driver.TxOptions{})
}

func (s *session) Ping(context.Context) error {
	if s.c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

func (s *session) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if s.c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	return &stubTx{conn: s.c}, nil
}

func (s *session) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	switch verb(query) {
	case "INSERT":
		return c.insert(query, args)
	case "DELETE":
		return c.delete(query, args)
	}
	return driver.RowsAffected(0), nil
}

func (s *session) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()
	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "pg_try_advisory_lock"):
		return c.tryLock(args)
	case strings.Contains(lower, "pg_advisory_unlock"):
		return c.unlock(args)
	}
	table, cols, err := parseSelect(query)
	if err != nil {
		return nil, err
	}
	if c.FailTables[table] {
		return nil, fmt.Errorf("query fail for %s", table)
	}
	values := make([][]driver.Value, 0, len(c.Tables[table]))
	for _, row := range c.Tables[table] {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: cols, rows: values, err: c.RowsErr}, nil
}

func verb(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

func lockKey(args []driver.NamedValue) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("advisory lock without key")
	}
	return fmt.Sprint(args[0].Value), nil
}

func (c *StubConn) tryLock(args []driver.NamedValue) (driver.Rows, error) {
	if c.FailLock {
		return nil, fmt.Errorf("lock query fail")
	}
	key, err := lockKey(args)
	if err != nil {
		return nil, err
	}
	acquired := !c.Locks[key]
	c.Locks[key] = true
	return &stubRows{cols: []string{"locked"}, rows: [][]driver.Value{{acquired}}}, nil
}

func (c *StubConn) unlock(args []driver.NamedValue) (driver.Rows, error) {
	key, err := lockKey(args)
	if err != nil {
		return nil, err
	}
	released := c.Locks[key]
	delete(c.Locks, key)
	return &stubRows{cols: []string{"unlocked"}, rows: [][]driver.Value{{released}}}, nil
}

// insert supports INSERT INTO t(a,b) VALUES(...) [ON CONFLICT ...], where a
// conflict replaces the row with the same first column.
func (c *StubConn) insert(query string, args []driver.NamedValue) (driver.Result, error) {
	table, cols, err := parseInsert(query)
	if err != nil {
		return nil, err
	}
	if c.FailTables[table] {
		return nil, fmt.Errorf("exec fail for %s", table)
	}
	if len(cols) != len(args) {
		return nil, fmt.Errorf("column/arg mismatch for %s", table)
	}
	row := make(map[string]any, len(cols))
	for i, col := range cols {
		row[col] = args[i].Value
	}
	if strings.Contains(strings.ToUpper(query), "ON CONFLICT") {
		c.Tables[table] = without(c.Tables[table], cols[0], row[cols[0]])
	}
	c.Tables[table] = append(c.Tables[table], row)
	return driver.RowsAffected(1), nil
}

func (c *StubConn) delete(query string, args []driver.NamedValue) (driver.Result, error) {
	table, col, err := parseDelete(query)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("missing args for delete %s", table)
	}
	before := len(c.Tables[table])
	c.Tables[table] = without(c.Tables[table], col, args[0].Value)
	return driver.RowsAffected(int64(before - len(c.Tables[table]))), nil
}

func without(rows []map[string]any, col string, value any) []map[string]any {
	var kept []map[string]any
	for _, row := range rows {
		if fmt.Sprint(row[col]) == fmt.Sprint(value) {
			continue
		}
		kept = append(kept, row)
	}
	return kept
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	return nil
}

func (t *stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func parseInsert(query string) (string, []string, error) {
	intoIdx := strings.Index(strings.ToUpper(query), "INTO ")
	if intoIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	rest := strings.TrimSpace(query[intoIdx+len("INTO "):])
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx <= open {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	return strings.ToLower(strings.TrimSpace(rest[:open])), splitColumns(rest[open+1 : closeIdx]), nil
}

func parseDelete(query string) (string, string, error) {
	rest, ok := cutPrefixFold(strings.TrimSpace(query), "delete from ")
	if !ok {
		return "", "", fmt.Errorf("cannot parse delete: %s", query)
	}
	whereIdx := strings.Index(strings.ToLower(rest), " where ")
	if whereIdx == -1 {
		return "", "", fmt.Errorf("cannot parse delete: %s", query)
	}
	col, _, ok := strings.Cut(rest[whereIdx+len(" where "):], "=")
	if !ok {
		return "", "", fmt.Errorf("cannot parse delete predicate: %s", query)
	}
	return strings.ToLower(strings.TrimSpace(rest[:whereIdx])), strings.ToLower(strings.TrimSpace(col)), nil
}

func parseSelect(query string) (string, []string, error) {
	rest, ok := cutPrefixFold(strings.TrimSpace(query), "select ")
	if !ok {
		return "", nil, fmt.Errorf("cannot parse select: %s", query)
	}
	fromIdx := strings.Index(strings.ToLower(rest), " from ")
	if fromIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse select: %s", query)
	}
	tail := strings.Fields(rest[fromIdx+len(" from "):])
	if len(tail) == 0 {
		return "", nil, fmt.Errorf("cannot parse select: %s", query)
	}
	return strings.ToLower(tail[0]), splitColumns(rest[:fromIdx]), nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
