package types

import "errors"

// ColumnType is the semantic type of an entity column. It drives both DDL
// generation and row decoding.
type ColumnType string

// Supported column types.
const (
	TypeInteger  ColumnType = "integer"
	TypeText     ColumnType = "text"
	TypeBoolean  ColumnType = "boolean"
	TypeDatetime ColumnType = "datetime"
	TypeReal     ColumnType = "real"
)

// Column describes one column of an entity table.
type Column struct {
	Name          string
	Type          ColumnType
	Nullable      bool
	Unique        bool
	PrimaryKey    bool
	AutoIncrement bool

	// Default is rendered into the DDL when non-nil. Only bool, string,
	// and numeric values are supported.
	Default any
}

// EntityDescriptor is the read-only metadata a backend needs to persist one
// entity type: its table name and an ordered column list. Descriptors are
// supplied by the caller; the entity-declaration layer that produces them is
// outside this module.
type EntityDescriptor struct {
	TableName string
	Columns   []Column
}

// Descriptor validation errors.
var (
	ErrTableNameEmpty     = errors.New("table name must not be empty")
	ErrNoColumns          = errors.New("descriptor has no columns")
	ErrNoPrimaryKey       = errors.New("descriptor has no primary key column")
	ErrMultiplePrimaryKey = errors.New("descriptor has more than one primary key column")
)

// Validate checks that the descriptor is well-formed: a table name, at least
// one column, and exactly one primary key.
func (d EntityDescriptor) Validate() error {
	if d.TableName == "" {
		return ErrTableNameEmpty
	}
	if len(d.Columns) == 0 {
		return ErrNoColumns
	}
	pks := 0
	for _, c := range d.Columns {
		if c.PrimaryKey {
			pks++
		}
	}
	switch {
	case pks == 0:
		return ErrNoPrimaryKey
	case pks > 1:
		return ErrMultiplePrimaryKey
	}
	return nil
}

// PrimaryKey returns the primary key column, if the descriptor declares one.
func (d EntityDescriptor) PrimaryKey() (Column, bool) {
	for _, c := range d.Columns {
		if c.PrimaryKey {
			return c, true
		}
	}
	return Column{}, false
}

// Column returns the column with the given name.
func (d EntityDescriptor) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in declaration order.
func (d EntityDescriptor) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Row is one entity record keyed by column name. Values use the decoded Go
// representation of the column type: int64, string, bool, float64,
// time.Time, or nil for NULL.
type Row map[string]any
