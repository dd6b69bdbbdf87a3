package types

// Operation is the statement shape of a derived query.
type Operation string

// Query operations, matching the four method-name prefixes.
const (
	OpFind   Operation = "find"
	OpCount  Operation = "count"
	OpDelete Operation = "delete"
	OpExists Operation = "exists"
)

// Condition is the comparison operator of one query part.
type Condition string

// Condition operators. Each maps to a fixed SQL fragment and a fixed
// parameter arity (see Arity).
const (
	CondEquals           Condition = "Equals"
	CondGreaterThan      Condition = "GreaterThan"
	CondLessThan         Condition = "LessThan"
	CondGreaterThanEqual Condition = "GreaterThanEqual"
	CondLessThanEqual    Condition = "LessThanEqual"
	CondLike             Condition = "Like"
	CondContaining       Condition = "Containing"
	CondStartingWith     Condition = "StartingWith"
	CondEndingWith       Condition = "EndingWith"
	CondBetween          Condition = "Between"
	// CondIn renders a single placeholder ("field IN (?)"); there is no
	// variable-arity expansion, so callers must pre-flatten the value.
	CondIn        Condition = "In"
	CondNot       Condition = "Not"
	CondIsNull    Condition = "IsNull"
	CondIsNotNull Condition = "IsNotNull"
	CondTrue      Condition = "True"
	CondFalse     Condition = "False"
)

// Arity returns the number of bound parameters the condition consumes.
func (c Condition) Arity() int {
	switch c {
	case CondIsNull, CondIsNotNull, CondTrue, CondFalse:
		return 0
	case CondBetween:
		return 2
	default:
		return 1
	}
}

// Connector joins a query part to the parts before it.
type Connector string

// Connectors. The first part of a query carries no connector.
const (
	ConnectorAnd Connector = "AND"
	ConnectorOr  Connector = "OR"
)

// QueryPart is one condition atom of a parsed query. Connector is empty only
// for the first part.
type QueryPart struct {
	Field     string
	Operator  Condition
	Connector Connector
}

// Direction is a sort direction in an ORDER BY clause.
type Direction string

// Sort directions.
const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// OrderKey is one ordering clause of a parsed query.
type OrderKey struct {
	Field     string
	Direction Direction
}

// ParsedQuery is the structured form of a derivation-convention method name.
// Parts are evaluated strictly left to right; no grouping or precedence is
// applied.
type ParsedQuery struct {
	Operation Operation
	Parts     []QueryPart
	OrderBy   []OrderKey
}

// BoundParam names one positional placeholder of a compiled query together
// with the operator that consumes it, so the caller can prepare the value
// (LIKE-family operators take wildcard-wrapped strings).
type BoundParam struct {
	Field    string
	Operator Condition
}

// CompiledQuery is an executable parameterized statement. SQL uses
// positional ? placeholders; Params lists them in placeholder order.
type CompiledQuery struct {
	SQL       string
	Operation Operation
	Params    []BoundParam
}

// ParamOrder returns the bound field names in placeholder order.
func (q CompiledQuery) ParamOrder() []string {
	names := make([]string, len(q.Params))
	for i, p := range q.Params {
		names[i] = p.Field
	}
	return names
}

// QueryResult holds the outcome of executing a compiled query. The populated
// field depends on the operation: Rows for find, Count for count (and rows
// affected for delete), Exists for exists.
type QueryResult struct {
	Rows   []Row
	Count  int64
	Exists bool
}
