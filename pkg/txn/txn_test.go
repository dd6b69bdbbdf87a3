package txn

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/sqlite"
	"github.com/mesh-intelligence/larder/pkg/types"
)

var taskDesc = types.EntityDescriptor{
	TableName: "tasks",
	Columns: []types.Column{
		{Name: "id", Type: types.TypeInteger, PrimaryKey: true, AutoIncrement: true},
		{Name: "title", Type: types.TypeText, Nullable: false},
	},
}

func setupSession(t *testing.T) types.Gateway {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(types.Config{
		Path:          filepath.Join(t.TempDir(), "larder.db"),
		BusyTimeoutMS: 5000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.CreateTables(ctx, taskDesc))

	session, err := store.Session(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close(context.Background()) })
	return session
}

func TestRunCommitsOnSuccess(t *testing.T) {
	session := setupSession(t)
	ctx := context.Background()

	saved, err := Run(ctx, session, func(ctx context.Context) (types.Row, error) {
		return session.Save(ctx, taskDesc, types.Row{"title": "write docs"})
	})
	require.NoError(t, err)
	assert.Equal(t, "write docs", saved["title"])
	assert.Equal(t, 0, session.TxDepth())

	count, err := session.Count(ctx, taskDesc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRunRollsBackOnError(t *testing.T) {
	session := setupSession(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := Run(ctx, session, func(ctx context.Context) (types.Row, error) {
		if _, err := session.Save(ctx, taskDesc, types.Row{"title": "discarded"}); err != nil {
			return nil, err
		}
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, session.TxDepth())

	count, err := session.Count(ctx, taskDesc)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRunRollsBackOnPanic(t *testing.T) {
	session := setupSession(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		Run(ctx, session, func(ctx context.Context) (struct{}, error) {
			session.Save(ctx, taskDesc, types.Row{"title": "discarded"})
			panic("boom")
		})
	})
	assert.Equal(t, 0, session.TxDepth())

	count, err := session.Count(ctx, taskDesc)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

// An inner Run failing discards only the inner frame's writes; the outer
// unit of work decides whether to continue.
func TestRunNested(t *testing.T) {
	session := setupSession(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := Exec(ctx, session, func(ctx context.Context) error {
		if _, err := session.Save(ctx, taskDesc, types.Row{"title": "kept"}); err != nil {
			return err
		}
		innerErr := Exec(ctx, session, func(ctx context.Context) error {
			if _, err := session.Save(ctx, taskDesc, types.Row{"title": "discarded"}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, innerErr, boom)
		assert.Equal(t, 1, session.TxDepth())
		return nil
	})
	require.NoError(t, err)

	rows, err := session.FindAll(ctx, taskDesc)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "kept", rows[0]["title"])
}

func TestExec(t *testing.T) {
	session := setupSession(t)
	ctx := context.Background()

	err := Exec(ctx, session, func(ctx context.Context) error {
		_, err := session.Save(ctx, taskDesc, types.Row{"title": "a"})
		return err
	})
	require.NoError(t, err)

	count, err := session.Count(ctx, taskDesc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRunBeginFailurePropagates(t *testing.T) {
	session := setupSession(t)
	ctx := context.Background()
	require.NoError(t, session.Close(ctx))

	err := Exec(ctx, session, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, types.ErrSessionClosed)
}
