package sqlite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// identifierRe validates table and column names before they are rendered
// into DDL.
var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlType maps a semantic column type to its SQLite storage type.
func sqlType(t types.ColumnType) string {
	switch t {
	case types.TypeInteger:
		return "INTEGER"
	case types.TypeText:
		return "TEXT"
	case types.TypeBoolean:
		return "BOOLEAN"
	case types.TypeDatetime:
		return "DATETIME"
	case types.TypeReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// DDL renders the CREATE TABLE statement for a descriptor without applying
// it.
func DDL(desc types.EntityDescriptor) (string, error) {
	return createTableSQL(desc)
}

// createTableSQL builds a CREATE TABLE IF NOT EXISTS statement from an
// entity descriptor.
func createTableSQL(desc types.EntityDescriptor) (string, error) {
	if err := desc.Validate(); err != nil {
		return "", fmt.Errorf("descriptor %q: %w", desc.TableName, err)
	}
	if !identifierRe.MatchString(desc.TableName) {
		return "", fmt.Errorf("invalid table name %q", desc.TableName)
	}

	defs := make([]string, 0, len(desc.Columns))
	for _, col := range desc.Columns {
		def, err := columnDef(col)
		if err != nil {
			return "", fmt.Errorf("table %q: %w", desc.TableName, err)
		}
		defs = append(defs, def)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n);",
		desc.TableName, strings.Join(defs, ",\n    ")), nil
}

// columnDef builds one column definition.
func columnDef(col types.Column) (string, error) {
	if !identifierRe.MatchString(col.Name) {
		return "", fmt.Errorf("invalid column name %q", col.Name)
	}

	parts := []string{col.Name, sqlType(col.Type)}
	if col.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
		if col.AutoIncrement {
			parts = append(parts, "AUTOINCREMENT")
		}
	}
	if !col.Nullable && !col.PrimaryKey {
		parts = append(parts, "NOT NULL")
	}
	if col.Unique && !col.PrimaryKey {
		parts = append(parts, "UNIQUE")
	}
	if col.Default != nil {
		lit, ok := defaultLiteral(col.Default)
		if !ok {
			return "", fmt.Errorf("column %q: unsupported default value %T", col.Name, col.Default)
		}
		parts = append(parts, "DEFAULT "+lit)
	}
	return strings.Join(parts, " "), nil
}

// defaultLiteral renders a default value as a SQL literal. Only bool,
// string, and numeric defaults are supported.
func defaultLiteral(v any) (string, bool) {
	switch d := v.(type) {
	case bool:
		if d {
			return "1", true
		}
		return "0", true
	case string:
		return "'" + strings.ReplaceAll(d, "'", "''") + "'", true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", d), true
	default:
		return "", false
	}
}
