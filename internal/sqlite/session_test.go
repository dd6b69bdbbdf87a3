package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// userDesc is the descriptor used throughout the session tests.
var userDesc = types.EntityDescriptor{
	TableName: "users",
	Columns: []types.Column{
		{Name: "id", Type: types.TypeInteger, PrimaryKey: true, AutoIncrement: true},
		{Name: "email", Type: types.TypeText, Nullable: false, Unique: true},
		{Name: "name", Type: types.TypeText, Nullable: true},
		{Name: "age", Type: types.TypeInteger, Nullable: true},
		{Name: "active", Type: types.TypeBoolean, Nullable: false, Default: true},
		{Name: "created_at", Type: types.TypeDatetime, Nullable: true},
	},
}

// setupStore opens a file-backed store in a temp dir with the users table
// created, and registers cleanup.
func setupStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(types.Config{
		Path:          filepath.Join(t.TempDir(), "larder.db"),
		BusyTimeoutMS: 5000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.CreateTables(context.Background(), userDesc))
	return store
}

// setupSession returns a session on a fresh store.
func setupSession(t *testing.T) (*Store, types.Gateway) {
	t.Helper()
	store := setupStore(t)
	session, err := store.Session(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { session.Close(context.Background()) })
	return store, session
}

func TestSaveAssignsGeneratedID(t *testing.T) {
	_, session := setupSession(t)
	ctx := context.Background()

	saved, err := session.Save(ctx, userDesc, types.Row{"email": "a@b.com", "name": "Ada"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), saved["id"])
	assert.Equal(t, "a@b.com", saved["email"])
	// Column defaults are applied by the database and visible after the
	// re-read.
	assert.Equal(t, true, saved["active"])
}

func TestSaveAssignsUUIDForTextKey(t *testing.T) {
	taskDesc := types.EntityDescriptor{
		TableName: "tasks",
		Columns: []types.Column{
			{Name: "task_id", Type: types.TypeText, PrimaryKey: true},
			{Name: "title", Type: types.TypeText, Nullable: false},
		},
	}
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateTables(ctx, taskDesc))

	session, err := store.Session(ctx)
	require.NoError(t, err)
	defer session.Close(ctx)

	saved, err := session.Save(ctx, taskDesc, types.Row{"title": "write tests"})
	require.NoError(t, err)

	id, ok := saved["task_id"].(string)
	require.True(t, ok)
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestSaveDoesNotMutateCallerRow(t *testing.T) {
	_, session := setupSession(t)
	row := types.Row{"email": "a@b.com"}

	_, err := session.Save(context.Background(), userDesc, row)
	require.NoError(t, err)
	_, present := row["id"]
	assert.False(t, present)
}

func TestFindByID(t *testing.T) {
	_, session := setupSession(t)
	ctx := context.Background()

	saved, err := session.Save(ctx, userDesc, types.Row{"email": "a@b.com"})
	require.NoError(t, err)

	got, err := session.FindByID(ctx, userDesc, saved["id"])
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", got["email"])

	_, err = session.FindByID(ctx, userDesc, int64(999))
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = session.FindByID(ctx, userDesc, nil)
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestFindAll(t *testing.T) {
	_, session := setupSession(t)
	ctx := context.Background()

	rows, err := session.FindAll(ctx, userDesc)
	require.NoError(t, err)
	assert.Empty(t, rows)

	for _, email := range []string{"a@b.com", "b@b.com", "c@b.com"} {
		_, err := session.Save(ctx, userDesc, types.Row{"email": email})
		require.NoError(t, err)
	}

	rows, err = session.FindAll(ctx, userDesc)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestUpdateStoredRow(t *testing.T) {
	_, session := setupSession(t)
	ctx := context.Background()

	saved, err := session.Save(ctx, userDesc, types.Row{"email": "a@b.com", "name": "Ada"})
	require.NoError(t, err)

	saved["name"] = "Grace"
	updated, err := session.Update(ctx, userDesc, saved)
	require.NoError(t, err)
	assert.Equal(t, "Grace", updated["name"])

	count, err := session.Count(ctx, userDesc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// A detached row whose key was never stored on this session is reconciled
// by primary key: update inserts it instead of failing.
func TestUpdateDetachedRow(t *testing.T) {
	_, session := setupSession(t)
	ctx := context.Background()

	updated, err := session.Update(ctx, userDesc, types.Row{
		"id":    int64(42),
		"email": "detached@b.com",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), updated["id"])

	got, err := session.FindByID(ctx, userDesc, int64(42))
	require.NoError(t, err)
	assert.Equal(t, "detached@b.com", got["email"])
}

func TestUpdateRequiresID(t *testing.T) {
	_, session := setupSession(t)

	_, err := session.Update(context.Background(), userDesc, types.Row{"email": "a@b.com"})
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestDelete(t *testing.T) {
	_, session := setupSession(t)
	ctx := context.Background()

	saved, err := session.Save(ctx, userDesc, types.Row{"email": "a@b.com"})
	require.NoError(t, err)

	require.NoError(t, session.Delete(ctx, userDesc, saved["id"]))
	assert.ErrorIs(t, session.Delete(ctx, userDesc, saved["id"]), types.ErrNotFound)
}

func TestExistsAndCount(t *testing.T) {
	_, session := setupSession(t)
	ctx := context.Background()

	saved, err := session.Save(ctx, userDesc, types.Row{"email": "a@b.com"})
	require.NoError(t, err)

	exists, err := session.Exists(ctx, userDesc, saved["id"])
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = session.Exists(ctx, userDesc, int64(999))
	require.NoError(t, err)
	assert.False(t, exists)

	count, err := session.Count(ctx, userDesc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDatetimeRoundTrip(t *testing.T) {
	_, session := setupSession(t)
	ctx := context.Background()

	created := time.Date(2026, 8, 27, 10, 30, 0, 0, time.UTC)
	saved, err := session.Save(ctx, userDesc, types.Row{
		"email":      "a@b.com",
		"created_at": created,
	})
	require.NoError(t, err)

	got, ok := saved["created_at"].(time.Time)
	require.True(t, ok)
	assert.True(t, created.Equal(got))
}

func TestExecuteQueryShapes(t *testing.T) {
	_, session := setupSession(t)
	ctx := context.Background()

	for _, r := range []types.Row{
		{"email": "a@b.com", "age": int64(30)},
		{"email": "b@b.com", "age": int64(40)},
	} {
		_, err := session.Save(ctx, userDesc, r)
		require.NoError(t, err)
	}

	find := types.CompiledQuery{
		SQL:       "SELECT * FROM users WHERE age > ?",
		Operation: types.OpFind,
		Params:    []types.BoundParam{{Field: "age", Operator: types.CondGreaterThan}},
	}
	res, err := session.ExecuteQuery(ctx, find, userDesc, []any{35})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "b@b.com", res.Rows[0]["email"])

	count := types.CompiledQuery{
		SQL:       "SELECT COUNT(*) FROM users WHERE age > ?",
		Operation: types.OpCount,
		Params:    []types.BoundParam{{Field: "age", Operator: types.CondGreaterThan}},
	}
	cres, err := session.ExecuteQuery(ctx, count, userDesc, []any{10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), cres.Count)

	exists := types.CompiledQuery{
		SQL:       "SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)",
		Operation: types.OpExists,
		Params:    []types.BoundParam{{Field: "email", Operator: types.CondEquals}},
	}
	eres, err := session.ExecuteQuery(ctx, exists, userDesc, []any{"a@b.com"})
	require.NoError(t, err)
	assert.True(t, eres.Exists)

	del := types.CompiledQuery{
		SQL:       "DELETE FROM users WHERE age > ?",
		Operation: types.OpDelete,
		Params:    []types.BoundParam{{Field: "age", Operator: types.CondGreaterThan}},
	}
	dres, err := session.ExecuteQuery(ctx, del, userDesc, []any{35})
	require.NoError(t, err)
	assert.Equal(t, int64(1), dres.Count)
}

func TestExecuteQueryArgumentCount(t *testing.T) {
	_, session := setupSession(t)

	q := types.CompiledQuery{
		SQL:       "SELECT * FROM users WHERE email = ?",
		Operation: types.OpFind,
		Params:    []types.BoundParam{{Field: "email", Operator: types.CondEquals}},
	}
	_, err := session.ExecuteQuery(context.Background(), q, userDesc, nil)
	assert.ErrorIs(t, err, types.ErrArgumentCount)
}

func TestHydrationRejectsUndeclaredColumn(t *testing.T) {
	_, session := setupSession(t)
	ctx := context.Background()

	_, err := session.Save(ctx, userDesc, types.Row{"email": "a@b.com"})
	require.NoError(t, err)

	q := types.CompiledQuery{
		SQL:       "SELECT id, email, 42 AS mystery FROM users",
		Operation: types.OpFind,
	}
	_, err = session.ExecuteQuery(ctx, q, userDesc, nil)
	var mappingErr *types.MappingError
	require.ErrorAs(t, err, &mappingErr)
	assert.Equal(t, "mystery", mappingErr.Column)
}

func TestTransactionRollbackDiscardsWrites(t *testing.T) {
	_, session := setupSession(t)
	ctx := context.Background()

	require.NoError(t, session.BeginTx(ctx))
	_, err := session.Save(ctx, userDesc, types.Row{"email": "a@b.com"})
	require.NoError(t, err)
	require.NoError(t, session.Rollback(ctx))

	count, err := session.Count(ctx, userDesc)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, 0, session.TxDepth())
}

func TestNestedTransactionFrames(t *testing.T) {
	_, session := setupSession(t)
	ctx := context.Background()

	require.NoError(t, session.BeginTx(ctx))
	_, err := session.Save(ctx, userDesc, types.Row{"email": "outer@b.com"})
	require.NoError(t, err)

	require.NoError(t, session.BeginTx(ctx))
	assert.Equal(t, 2, session.TxDepth())
	_, err = session.Save(ctx, userDesc, types.Row{"email": "inner@b.com"})
	require.NoError(t, err)

	// Rolling back the nested frame discards only the inner write and
	// leaves the outer frame open.
	require.NoError(t, session.Rollback(ctx))
	assert.Equal(t, 1, session.TxDepth())

	require.NoError(t, session.Commit(ctx))
	assert.Equal(t, 0, session.TxDepth())

	rows, err := session.FindAll(ctx, userDesc)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "outer@b.com", rows[0]["email"])
}

func TestNestedCommitCommitsAll(t *testing.T) {
	_, session := setupSession(t)
	ctx := context.Background()

	require.NoError(t, session.BeginTx(ctx))
	require.NoError(t, session.BeginTx(ctx))
	_, err := session.Save(ctx, userDesc, types.Row{"email": "a@b.com"})
	require.NoError(t, err)
	require.NoError(t, session.Commit(ctx))
	require.NoError(t, session.Commit(ctx))
	assert.Equal(t, 0, session.TxDepth())

	count, err := session.Count(ctx, userDesc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCommitWithoutTransaction(t *testing.T) {
	_, session := setupSession(t)

	assert.ErrorIs(t, session.Commit(context.Background()), types.ErrNoTransaction)
	assert.ErrorIs(t, session.Rollback(context.Background()), types.ErrNoTransaction)
}

func TestCloseRollsBackOpenFrames(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	session, err := store.Session(ctx)
	require.NoError(t, err)

	require.NoError(t, session.BeginTx(ctx))
	_, err = session.Save(ctx, userDesc, types.Row{"email": "a@b.com"})
	require.NoError(t, err)
	require.NoError(t, session.Close(ctx))

	fresh, err := store.Session(ctx)
	require.NoError(t, err)
	defer fresh.Close(ctx)

	count, err := fresh.Count(ctx, userDesc)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestAutoCommitOutsideTransaction(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	session, err := store.Session(ctx)
	require.NoError(t, err)
	_, err = session.Save(ctx, userDesc, types.Row{"email": "a@b.com"})
	require.NoError(t, err)
	require.NoError(t, session.Close(ctx))

	fresh, err := store.Session(ctx)
	require.NoError(t, err)
	defer fresh.Close(ctx)

	count, err := fresh.Count(ctx, userDesc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSessionClosedOperations(t *testing.T) {
	_, session := setupSession(t)
	ctx := context.Background()
	require.NoError(t, session.Close(ctx))

	_, err := session.Save(ctx, userDesc, types.Row{"email": "a@b.com"})
	assert.ErrorIs(t, err, types.ErrSessionClosed)
	assert.ErrorIs(t, session.BeginTx(ctx), types.ErrSessionClosed)

	// Close is idempotent.
	assert.NoError(t, session.Close(ctx))
}

func TestStoreClosed(t *testing.T) {
	store := setupStore(t)
	require.NoError(t, store.Close())

	_, err := store.Session(context.Background())
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	assert.ErrorIs(t, store.CreateTables(context.Background(), userDesc), types.ErrStoreClosed)
	// Close is idempotent.
	assert.NoError(t, store.Close())
}
