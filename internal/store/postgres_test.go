package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingDriver is a minimal database/sql driver that records which connection
// served each query. Advisory locks are session-scoped in Postgres, so the lock
// and unlock statements must observe the same connection id.
type recordingDriver struct {
	mu      sync.Mutex
	nextID  int
	queries []connQuery
}

type connQuery struct {
	connID int
	query  string
}

func (d *recordingDriver) record(connID int, query string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries = append(d.queries, connQuery{connID: connID, query: query})
}

func (d *recordingDriver) Open(string) (driver.Conn, error) {
	return d.newConn(), nil
}

func (d *recordingDriver) newConn() driver.Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return &recordingConn{id: d.nextID, driver: d}
}

type recordingConnector struct {
	driver *recordingDriver
}

func (c recordingConnector) Connect(context.Context) (driver.Conn, error) {
	return c.driver.newConn(), nil
}

func (c recordingConnector) Driver() driver.Driver {
	return c.driver
}

type recordingConn struct {
	id     int
	driver *recordingDriver
}

func (c *recordingConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *recordingConn) Close() error {
	return nil
}

func (c *recordingConn) Begin() (driver.Tx, error) {
	return nil, errors.New("begin not supported")
}

func (c *recordingConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.driver.record(c.id, query)
	return &boolRows{}, nil
}

type boolRows struct {
	done bool
}

func (r *boolRows) Columns() []string {
	return []string{"ok"}
}

func (r *boolRows) Close() error {
	return nil
}

func (r *boolRows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	dest[0] = true
	return nil
}

func TestIngestLockAndUnlockSharePinnedConnection(t *testing.T) {
	t.Parallel()

	drv := &recordingDriver{}
	db := sql.OpenDB(recordingConnector{driver: drv})
	defer db.Close()

	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	s := &PostgresStore{}
	unlock, err := s.acquireIngestLock(context.Background(), conn)
	require.NoError(t, err)
	unlock()

	drv.mu.Lock()
	defer drv.mu.Unlock()
	require.Len(t, drv.queries, 2)
	require.Contains(t, drv.queries[0].query, "pg_try_advisory_lock")
	require.Contains(t, drv.queries[1].query, "pg_advisory_unlock")
	require.Equal(t, drv.queries[0].connID, drv.queries[1].connID)
}
