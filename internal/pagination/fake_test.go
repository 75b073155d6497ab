package pagination

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRows replays canned rows through the pgx.Rows interface.
type fakeRows struct {
	rows [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.pos-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	for i, d := range dest {
		switch target := d.(type) {
		case *int64:
			*target = row[i].(int64)
		case *string:
			*target = row[i].(string)
		}
	}
	return nil
}

type fakeRow struct {
	value int64
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.value
	return nil
}

// fakeQueryer serves item rows from Query and count values from
// QueryRow, recording every SQL statement it sees.
type fakeQueryer struct {
	rows       [][]any
	queryErr   error
	countValue int64
	countErr   error

	queries     []string
	countCalls  int
	lastArgs    []any
	lastRowArgs []any
}

func (q *fakeQueryer) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.queries = append(q.queries, sql)
	q.lastArgs = args
	if q.queryErr != nil {
		return nil, q.queryErr
	}
	return &fakeRows{rows: q.rows}, nil
}

func (q *fakeQueryer) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.queries = append(q.queries, sql)
	q.countCalls++
	q.lastRowArgs = args
	return fakeRow{value: q.countValue, err: q.countErr}
}

type testItem struct {
	ID   int64
	Name string
}

func testMapper(row pgx.CollectableRow) (testItem, error) {
	var item testItem
	err := row.Scan(&item.ID, &item.Name)
	return item, err
}

func makeRows(n int, startID int64) [][]any {
	rows := make([][]any, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, []any{startID + int64(i), "item"})
	}
	return rows
}
