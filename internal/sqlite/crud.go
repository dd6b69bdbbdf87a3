package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// newUUID generates a UUID v7 string for text primary keys.
func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Save inserts a new row. An absent integer auto-increment key is assigned
// by the database; an absent or empty text key is assigned a generated
// UUID v7. The stored row is re-read so the caller sees generated values
// and column defaults.
func (s *Session) Save(ctx context.Context, desc types.EntityDescriptor, row types.Row) (types.Row, error) {
	if s.closed {
		return nil, types.ErrSessionClosed
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	pk, _ := desc.PrimaryKey()
	values := cloneRow(row)

	useRowID := false
	id, hasID := values[pk.Name]
	switch {
	case pk.AutoIncrement:
		if !hasID || id == nil {
			delete(values, pk.Name)
			useRowID = true
		}
	case pk.Type == types.TypeText:
		if !hasID || id == nil || id == "" {
			values[pk.Name] = newUUID()
		}
	default:
		if !hasID || id == nil {
			return nil, fmt.Errorf("save into %s: %w", desc.TableName, types.ErrInvalidID)
		}
	}

	cols, args, err := bindColumns(desc, values)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("save into %s: no column values", desc.TableName)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		desc.TableName, strings.Join(cols, ", "), placeholders(len(cols)))
	res, err := s.conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", desc.TableName, err)
	}

	storedID := values[pk.Name]
	if useRowID {
		rowID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert into %s: generated id: %w", desc.TableName, err)
		}
		storedID = rowID
	}
	return s.FindByID(ctx, desc, storedID)
}

// FindByID returns the row with the given primary key, or ErrNotFound.
func (s *Session) FindByID(ctx context.Context, desc types.EntityDescriptor, id any) (types.Row, error) {
	if s.closed {
		return nil, types.ErrSessionClosed
	}
	pk, ok := desc.PrimaryKey()
	if !ok {
		return nil, types.ErrNoPrimaryKey
	}
	if id == nil || id == "" {
		return nil, types.ErrInvalidID
	}

	stmt := fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", desc.TableName, pk.Name)
	rows, err := s.conn.QueryContext(ctx, stmt, encodeValue(id))
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", desc.TableName, err)
	}
	hydrated, err := scanRows(rows, desc)
	if err != nil {
		return nil, err
	}
	if len(hydrated) == 0 {
		return nil, types.ErrNotFound
	}
	return hydrated[0], nil
}

// FindAll returns every row of the table.
func (s *Session) FindAll(ctx context.Context, desc types.EntityDescriptor) ([]types.Row, error) {
	if s.closed {
		return nil, types.ErrSessionClosed
	}
	rows, err := s.conn.QueryContext(ctx, "SELECT * FROM "+desc.TableName)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", desc.TableName, err)
	}
	return scanRows(rows, desc)
}

// Update writes the row identified by its primary key. A detached row whose
// key is not stored yet is reconciled by inserting it; otherwise the stored
// row is updated column by column.
func (s *Session) Update(ctx context.Context, desc types.EntityDescriptor, row types.Row) (types.Row, error) {
	if s.closed {
		return nil, types.ErrSessionClosed
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	pk, _ := desc.PrimaryKey()
	id, hasID := row[pk.Name]
	if !hasID || id == nil || id == "" {
		return nil, fmt.Errorf("update %s: %w", desc.TableName, types.ErrInvalidID)
	}

	cols, args, err := bindColumns(desc, row)
	if err != nil {
		return nil, err
	}

	var sets []string
	for _, col := range cols {
		if col == pk.Name {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		desc.TableName, strings.Join(cols, ", "), placeholders(len(cols)))
	if len(sets) > 0 {
		stmt += fmt.Sprintf(" ON CONFLICT(%s) DO UPDATE SET %s", pk.Name, strings.Join(sets, ", "))
	} else {
		stmt += fmt.Sprintf(" ON CONFLICT(%s) DO NOTHING", pk.Name)
	}
	if _, err := s.conn.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("upsert into %s: %w", desc.TableName, err)
	}
	return s.FindByID(ctx, desc, id)
}

// Delete removes the row with the given primary key, or ErrNotFound.
func (s *Session) Delete(ctx context.Context, desc types.EntityDescriptor, id any) error {
	if s.closed {
		return types.ErrSessionClosed
	}
	pk, ok := desc.PrimaryKey()
	if !ok {
		return types.ErrNoPrimaryKey
	}
	if id == nil || id == "" {
		return types.ErrInvalidID
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", desc.TableName, pk.Name)
	res, err := s.conn.ExecContext(ctx, stmt, encodeValue(id))
	if err != nil {
		return fmt.Errorf("delete from %s: %w", desc.TableName, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", desc.TableName, err)
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// Exists reports whether a row with the given primary key exists.
func (s *Session) Exists(ctx context.Context, desc types.EntityDescriptor, id any) (bool, error) {
	if s.closed {
		return false, types.ErrSessionClosed
	}
	pk, ok := desc.PrimaryKey()
	if !ok {
		return false, types.ErrNoPrimaryKey
	}

	stmt := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)", desc.TableName, pk.Name)
	var exists int
	if err := s.conn.QueryRowContext(ctx, stmt, encodeValue(id)).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists in %s: %w", desc.TableName, err)
	}
	return exists != 0, nil
}

// Count returns the number of rows in the table.
func (s *Session) Count(ctx context.Context, desc types.EntityDescriptor) (int64, error) {
	if s.closed {
		return 0, types.ErrSessionClosed
	}
	var count int64
	stmt := "SELECT COUNT(*) FROM " + desc.TableName
	if err := s.conn.QueryRowContext(ctx, stmt).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", desc.TableName, err)
	}
	return count, nil
}

// ExecuteQuery runs a compiled derived query with positional arguments
// zipped to its placeholders.
func (s *Session) ExecuteQuery(ctx context.Context, q types.CompiledQuery, desc types.EntityDescriptor, args []any) (types.QueryResult, error) {
	if s.closed {
		return types.QueryResult{}, types.ErrSessionClosed
	}
	if len(args) != len(q.Params) {
		return types.QueryResult{}, fmt.Errorf("%w: query %q takes %d, got %d",
			types.ErrArgumentCount, q.SQL, len(q.Params), len(args))
	}

	encoded := make([]any, len(args))
	for i, a := range args {
		encoded[i] = encodeValue(a)
	}

	switch q.Operation {
	case types.OpFind:
		rows, err := s.conn.QueryContext(ctx, q.SQL, encoded...)
		if err != nil {
			return types.QueryResult{}, fmt.Errorf("query %s: %w", desc.TableName, err)
		}
		hydrated, err := scanRows(rows, desc)
		if err != nil {
			return types.QueryResult{}, err
		}
		return types.QueryResult{Rows: hydrated}, nil

	case types.OpCount:
		var count int64
		if err := s.conn.QueryRowContext(ctx, q.SQL, encoded...).Scan(&count); err != nil {
			return types.QueryResult{}, fmt.Errorf("count %s: %w", desc.TableName, err)
		}
		return types.QueryResult{Count: count}, nil

	case types.OpExists:
		var exists int
		if err := s.conn.QueryRowContext(ctx, q.SQL, encoded...).Scan(&exists); err != nil {
			return types.QueryResult{}, fmt.Errorf("exists %s: %w", desc.TableName, err)
		}
		return types.QueryResult{Exists: exists != 0}, nil

	case types.OpDelete:
		res, err := s.conn.ExecContext(ctx, q.SQL, encoded...)
		if err != nil {
			return types.QueryResult{}, fmt.Errorf("delete %s: %w", desc.TableName, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return types.QueryResult{}, fmt.Errorf("delete %s: %w", desc.TableName, err)
		}
		return types.QueryResult{Count: affected}, nil

	default:
		return types.QueryResult{}, fmt.Errorf("unsupported operation %q", q.Operation)
	}
}

// bindColumns returns the descriptor columns present in the row, in
// declaration order, with their encoded values. Columns absent from the row
// are omitted so the database applies their declared defaults.
func bindColumns(desc types.EntityDescriptor, row types.Row) ([]string, []any, error) {
	var (
		cols []string
		args []any
	)
	for _, col := range desc.Columns {
		v, ok := row[col.Name]
		if !ok {
			continue
		}
		cols = append(cols, col.Name)
		args = append(args, encodeValue(v))
	}
	for name := range row {
		if _, ok := desc.Column(name); !ok {
			return nil, nil, &types.MappingError{
				Table:  desc.TableName,
				Column: name,
				Err:    errColumnNotDeclared,
			}
		}
	}
	return cols, args, nil
}

// placeholders renders n comma-separated positional placeholders.
func placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = "?"
	}
	return strings.Join(marks, ", ")
}

// cloneRow copies a row so identity assignment does not mutate the
// caller's map.
func cloneRow(row types.Row) types.Row {
	out := make(types.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
