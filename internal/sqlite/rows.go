package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/larder/pkg/types"
)

var errColumnNotDeclared = errors.New("column not declared in descriptor")

// encodeValue converts a Go value to its SQLite storage representation.
// Times are stored as RFC 3339 strings; everything else passes through to
// the driver.
func encodeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return v
	}
}

// scanRows hydrates every result row into a types.Row, matching columns to
// the descriptor strictly by name. A column the descriptor does not declare,
// or a value that does not decode to the declared type, is a MappingError.
func scanRows(rows *sql.Rows, desc types.EntityDescriptor) ([]types.Row, error) {
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("result columns for %s: %w", desc.TableName, err)
	}

	var out []types.Row
	for rows.Next() {
		raw := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row of %s: %w", desc.TableName, err)
		}

		row := make(types.Row, len(names))
		for i, name := range names {
			col, ok := desc.Column(name)
			if !ok {
				return nil, &types.MappingError{Table: desc.TableName, Column: name, Err: errColumnNotDeclared}
			}
			v, err := decodeValue(col, raw[i])
			if err != nil {
				return nil, &types.MappingError{Table: desc.TableName, Column: name, Err: err}
			}
			row[name] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows of %s: %w", desc.TableName, err)
	}
	return out, nil
}

// decodeValue converts a driver value to the Go representation of the
// column's semantic type.
func decodeValue(col types.Column, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch col.Type {
	case types.TypeInteger:
		if v, ok := raw.(int64); ok {
			return v, nil
		}
	case types.TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		}
	case types.TypeText:
		switch v := raw.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
	case types.TypeDatetime:
		switch v := raw.(type) {
		case time.Time:
			return v, nil
		case string:
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, fmt.Errorf("parsing datetime: %w", err)
			}
			return ts, nil
		case []byte:
			ts, err := time.Parse(time.RFC3339, string(v))
			if err != nil {
				return nil, fmt.Errorf("parsing datetime: %w", err)
			}
			return ts, nil
		}
	case types.TypeReal:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		}
	}
	return nil, fmt.Errorf("unexpected value of type %T for %s column", raw, col.Type)
}
