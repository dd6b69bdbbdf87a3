package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// compile is a test helper chaining Parse and Generate.
func compile(t *testing.T, method, table string) types.CompiledQuery {
	t.Helper()
	pq, err := Parse(method)
	require.NoError(t, err)
	cq, err := Generate(pq, table)
	require.NoError(t, err)
	return cq
}

func TestGenerateStatementShapes(t *testing.T) {
	tests := []struct {
		method string
		sql    string
		params []string
	}{
		{
			method: "findByEmail",
			sql:    "SELECT * FROM users WHERE email = ?",
			params: []string{"email"},
		},
		{
			method: "countByActive",
			sql:    "SELECT COUNT(*) FROM users WHERE active = ?",
			params: []string{"active"},
		},
		{
			method: "deleteByEmail",
			sql:    "DELETE FROM users WHERE email = ?",
			params: []string{"email"},
		},
		{
			method: "existsByUsername",
			sql:    "SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)",
			params: []string{"username"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			cq := compile(t, tt.method, "users")
			assert.Equal(t, tt.sql, cq.SQL)
			assert.Equal(t, tt.params, cq.ParamOrder())
		})
	}
}

func TestGenerateOperatorFragments(t *testing.T) {
	tests := []struct {
		method string
		sql    string
		arity  int
	}{
		{"findByAgeGreaterThan", "SELECT * FROM users WHERE age > ?", 1},
		{"findByAgeLessThan", "SELECT * FROM users WHERE age < ?", 1},
		{"findByAgeGreaterThanEqual", "SELECT * FROM users WHERE age >= ?", 1},
		{"findByAgeLessThanEqual", "SELECT * FROM users WHERE age <= ?", 1},
		{"findByNameLike", "SELECT * FROM users WHERE name LIKE ?", 1},
		{"findByNameContaining", "SELECT * FROM users WHERE name LIKE ?", 1},
		{"findByNameStartingWith", "SELECT * FROM users WHERE name LIKE ?", 1},
		{"findByNameEndingWith", "SELECT * FROM users WHERE name LIKE ?", 1},
		{"findByAgeBetween", "SELECT * FROM users WHERE age BETWEEN ? AND ?", 2},
		{"findByStatusIn", "SELECT * FROM users WHERE status IN (?)", 1},
		{"findByStatusNot", "SELECT * FROM users WHERE status != ?", 1},
		{"findByEmailIsNull", "SELECT * FROM users WHERE email IS NULL", 0},
		{"findByEmailIsNotNull", "SELECT * FROM users WHERE email IS NOT NULL", 0},
		{"findByActiveTrue", "SELECT * FROM users WHERE active = TRUE", 0},
		{"findByActiveFalse", "SELECT * FROM users WHERE active = FALSE", 0},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			cq := compile(t, tt.method, "users")
			assert.Equal(t, tt.sql, cq.SQL)
			assert.Len(t, cq.Params, tt.arity)
		})
	}
}

func TestGenerateConnectorsAndOrdering(t *testing.T) {
	cq := compile(t, "findByAgeGreaterThanAndActiveTrueOrderByNameDesc", "users")
	assert.Equal(t,
		"SELECT * FROM users WHERE age > ? AND active = TRUE ORDER BY name DESC",
		cq.SQL)
	// Zero-arity comparisons contribute no placeholder.
	assert.Equal(t, []string{"age"}, cq.ParamOrder())
}

func TestGenerateOrConnector(t *testing.T) {
	cq := compile(t, "findByEmailOrUsername", "users")
	assert.Equal(t, "SELECT * FROM users WHERE email = ? OR username = ?", cq.SQL)
	assert.Equal(t, []string{"email", "username"}, cq.ParamOrder())
}

func TestGenerateBetweenParamOrder(t *testing.T) {
	cq := compile(t, "findByAgeBetweenAndActive", "users")
	assert.Equal(t, "SELECT * FROM users WHERE age BETWEEN ? AND ? AND active = ?", cq.SQL)
	assert.Equal(t, []string{"age", "age", "active"}, cq.ParamOrder())
}

func TestGenerateMultipleOrderKeys(t *testing.T) {
	cq := compile(t, "findByActiveOrderByNameAscAndAgeDesc", "users")
	assert.Equal(t,
		"SELECT * FROM users WHERE active = ? ORDER BY name ASC, age DESC",
		cq.SQL)
}

func TestGenerateRejectsInvalidTableName(t *testing.T) {
	pq, err := Parse("findByEmail")
	require.NoError(t, err)

	_, err = Generate(pq, "users; DROP TABLE users")
	assert.Error(t, err)
}
