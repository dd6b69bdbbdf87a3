package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// identifierRe validates SQL identifiers before they are rendered into a
// statement. Field names arrive pre-constrained from the parser; table names
// arrive from descriptors and are checked here.
var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Generate renders a parsed query into a parameterized statement for the
// given table. Placeholders are positional ?; the compiled query's Params
// list them in placeholder order.
func Generate(pq types.ParsedQuery, tableName string) (types.CompiledQuery, error) {
	if !identifierRe.MatchString(tableName) {
		return types.CompiledQuery{}, fmt.Errorf("invalid table name %q", tableName)
	}

	where, params, err := buildWhereClause(pq.Parts)
	if err != nil {
		return types.CompiledQuery{}, err
	}

	var b strings.Builder
	switch pq.Operation {
	case types.OpFind:
		b.WriteString("SELECT * FROM ")
		b.WriteString(tableName)
		if where != "" {
			b.WriteString(" WHERE ")
			b.WriteString(where)
		}
		if len(pq.OrderBy) > 0 {
			b.WriteString(" ORDER BY ")
			b.WriteString(buildOrderBy(pq.OrderBy))
		}
	case types.OpCount:
		b.WriteString("SELECT COUNT(*) FROM ")
		b.WriteString(tableName)
		if where != "" {
			b.WriteString(" WHERE ")
			b.WriteString(where)
		}
	case types.OpDelete:
		b.WriteString("DELETE FROM ")
		b.WriteString(tableName)
		if where != "" {
			b.WriteString(" WHERE ")
			b.WriteString(where)
		}
	case types.OpExists:
		b.WriteString("SELECT EXISTS(SELECT 1 FROM ")
		b.WriteString(tableName)
		if where != "" {
			b.WriteString(" WHERE ")
			b.WriteString(where)
		}
		b.WriteString(")")
	default:
		return types.CompiledQuery{}, fmt.Errorf("unsupported operation %q", pq.Operation)
	}

	return types.CompiledQuery{
		SQL:       b.String(),
		Operation: pq.Operation,
		Params:    params,
	}, nil
}

// buildWhereClause concatenates per-part fragments left to right, prefixing
// every part after the first with its connector.
func buildWhereClause(parts []types.QueryPart) (string, []types.BoundParam, error) {
	var (
		b      strings.Builder
		params []types.BoundParam
	)
	for i, part := range parts {
		fragment, err := conditionFragment(part)
		if err != nil {
			return "", nil, err
		}
		if i > 0 {
			connector := part.Connector
			if connector == "" {
				connector = types.ConnectorAnd
			}
			b.WriteString(" ")
			b.WriteString(string(connector))
			b.WriteString(" ")
		}
		b.WriteString(fragment)
		for n := part.Operator.Arity(); n > 0; n-- {
			params = append(params, types.BoundParam{Field: part.Field, Operator: part.Operator})
		}
	}
	return b.String(), params, nil
}

// conditionFragment renders one query part. Wildcard insertion for the
// LIKE-family operators is the caller's responsibility, not the generator's.
func conditionFragment(part types.QueryPart) (string, error) {
	f := part.Field
	switch part.Operator {
	case types.CondEquals:
		return f + " = ?", nil
	case types.CondGreaterThan:
		return f + " > ?", nil
	case types.CondLessThan:
		return f + " < ?", nil
	case types.CondGreaterThanEqual:
		return f + " >= ?", nil
	case types.CondLessThanEqual:
		return f + " <= ?", nil
	case types.CondLike, types.CondContaining, types.CondStartingWith, types.CondEndingWith:
		return f + " LIKE ?", nil
	case types.CondBetween:
		return f + " BETWEEN ? AND ?", nil
	case types.CondIn:
		return f + " IN (?)", nil
	case types.CondNot:
		return f + " != ?", nil
	case types.CondIsNull:
		return f + " IS NULL", nil
	case types.CondIsNotNull:
		return f + " IS NOT NULL", nil
	case types.CondTrue:
		return f + " = TRUE", nil
	case types.CondFalse:
		return f + " = FALSE", nil
	default:
		return "", fmt.Errorf("unsupported operator %q", part.Operator)
	}
}

// buildOrderBy renders the ordering clauses in declared order.
func buildOrderBy(keys []types.OrderKey) string {
	clauses := make([]string, len(keys))
	for i, k := range keys {
		clauses[i] = k.Field + " " + string(k.Direction)
	}
	return strings.Join(clauses, ", ")
}
