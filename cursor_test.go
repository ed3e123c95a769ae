package rqlitec

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorExecuteRaisesOnErrorByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"error":"UNIQUE constraint failed"}]}`))
	}))
	defer srv.Close()

	conn := newTestConnection(t, []string{hostFromURL(srv.URL)})
	cur := conn.Cursor(Weak, 0)

	_, _, _, err := cur.Execute(context.Background(), "INSERT INTO foo (a) VALUES (1)", nil)
	require.Error(t, err)
	var stmtErr *StatementError
	require.ErrorAs(t, err, &stmtErr)
}

func TestCursorExecuteSuppressesErrorWhenRequested(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"error":"UNIQUE constraint failed"}]}`))
	}))
	defer srv.Close()

	conn := newTestConnection(t, []string{hostFromURL(srv.URL)})
	cur := conn.Cursor(Weak, 0)

	query, exec, errText, err := cur.Execute(context.Background(), "INSERT INTO foo (a) VALUES (1)", nil, WithRaiseOnError(false))
	require.NoError(t, err)
	require.Nil(t, query)
	require.Nil(t, exec)
	require.Equal(t, "UNIQUE constraint failed", errText)
}

func TestCursorExecuteRoutesReadsThroughQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "/db/query")
		_, _ = w.Write([]byte(`{"results":[{"columns":["x"],"values":[[1]]}]}`))
	}))
	defer srv.Close()

	conn := newTestConnection(t, []string{hostFromURL(srv.URL)})
	cur := conn.Cursor(Weak, 0)

	query, exec, errText, err := cur.Execute(context.Background(), "SELECT 1", nil)
	require.NoError(t, err)
	require.Nil(t, exec)
	require.Empty(t, errText)
	require.Equal(t, 1, query.NumRows())
}

func TestCursorExecuteManyPreservesPartialResultsWithoutRaising(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"rows_affected":1},{"error":"UNIQUE constraint failed"}]}`))
	}))
	defer srv.Close()

	conn := newTestConnection(t, []string{hostFromURL(srv.URL)})
	cur := conn.Cursor(Weak, 0)

	bulk, err := cur.ExecuteMany(context.Background(), []Statement{
		{SQL: "INSERT INTO foo (a) VALUES (1)"},
		{SQL: "INSERT INTO foo (a) VALUES (1)"},
	}, WithRaiseOnError(false))
	require.NoError(t, err)
	require.Len(t, bulk.Items, 2)
	require.Empty(t, bulk.Items[0].Err)
	require.Equal(t, "UNIQUE constraint failed", bulk.Items[1].Err)
}

func TestCursorExplainClampsStrongToWeak(t *testing.T) {
	var gotLevel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLevel = r.URL.Query().Get("level")
		_, _ = w.Write([]byte(`{"results":[{"columns":["detail"],"values":[["SCAN foo"]]}]}`))
	}))
	defer srv.Close()

	conn := newTestConnection(t, []string{hostFromURL(srv.URL)})
	cur := conn.Cursor(Strong, 0)

	_, err := cur.Explain(context.Background(), "SELECT * FROM foo", nil)
	require.NoError(t, err)
	require.Equal(t, "weak", gotLevel)
}
