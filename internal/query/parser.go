// Package query compiles derivation-convention method names into executable
// SQL. Parse turns a name like findByEmailAndActiveOrderByNameDesc into a
// ParsedQuery; Generate renders a ParsedQuery into a parameterized statement.
package query

import (
	"regexp"
	"strings"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// operationPrefixes maps method-name prefixes to operations. A valid name
// starts with one of these followed by the By separator.
var operationPrefixes = []struct {
	prefix string
	op     types.Operation
}{
	{"findBy", types.OpFind},
	{"countBy", types.OpCount},
	{"deleteBy", types.OpDelete},
	{"existsBy", types.OpExists},
}

// conditionSuffixes lists operator suffixes in match order. Longer suffixes
// that share a prefix with a shorter one must come first: GreaterThanEqual
// before GreaterThan, LessThanEqual before LessThan.
var conditionSuffixes = []struct {
	suffix string
	cond   types.Condition
}{
	{"GreaterThanEqual", types.CondGreaterThanEqual},
	{"LessThanEqual", types.CondLessThanEqual},
	{"GreaterThan", types.CondGreaterThan},
	{"LessThan", types.CondLessThan},
	{"Containing", types.CondContaining},
	{"StartingWith", types.CondStartingWith},
	{"EndingWith", types.CondEndingWith},
	{"Between", types.CondBetween},
	{"Like", types.CondLike},
	{"In", types.CondIn},
	{"IsNull", types.CondIsNull},
	{"IsNotNull", types.CondIsNotNull},
	{"True", types.CondTrue},
	{"False", types.CondFalse},
	{"Not", types.CondNot},
}

const orderBySeparator = "OrderBy"

var (
	// connectorRe splits condition segments on And/Or tokens. And is tried
	// first; the two alternatives cannot match at the same position.
	connectorRe = regexp.MustCompile(`And|Or`)

	// fieldAtomRe constrains what may resolve as a bare field name.
	fieldAtomRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

	// Camel-to-snake insertion passes. The first inserts a separator before
	// an uppercase run followed by lowercase (acronym-adjacent boundaries),
	// the second before an uppercase letter following a lowercase or digit.
	camelBoundaryAcronym = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	camelBoundaryLower   = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// Parse compiles a derivation-convention method name into a ParsedQuery.
// The grammar is <prefix>By<conditions>[OrderBy<orderClauses>] with
// prefix one of find, count, delete, exists. Names without at least one
// condition atom are rejected; findAll-style derivations are out of grammar.
func Parse(name string) (types.ParsedQuery, error) {
	op, remainder, ok := splitOperation(name)
	if !ok {
		return types.ParsedQuery{}, &types.SyntaxError{Method: name}
	}

	condSegment := remainder
	orderSegment := ""
	if i := strings.Index(remainder, orderBySeparator); i >= 0 {
		condSegment = remainder[:i]
		orderSegment = remainder[i+len(orderBySeparator):]
	}

	parts, err := parseConditions(name, condSegment)
	if err != nil {
		return types.ParsedQuery{}, err
	}
	if len(parts) == 0 {
		return types.ParsedQuery{}, &types.SyntaxError{Method: name}
	}

	return types.ParsedQuery{
		Operation: op,
		Parts:     parts,
		OrderBy:   parseOrderBy(orderSegment),
	}, nil
}

// splitOperation strips the operation prefix and its By separator.
func splitOperation(name string) (types.Operation, string, bool) {
	for _, p := range operationPrefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.op, name[len(p.prefix):], true
		}
	}
	return "", "", false
}

// parseConditions splits the condition segment on And/Or connectors,
// preserving their order, and resolves each atom into a field and operator.
func parseConditions(method, segment string) ([]types.QueryPart, error) {
	var parts []types.QueryPart
	connector := types.Connector("")

	pos := 0
	bounds := connectorRe.FindAllStringIndex(segment, -1)
	for _, b := range bounds {
		atom := segment[pos:b[0]]
		if atom != "" {
			part, err := parseAtom(method, atom)
			if err != nil {
				return nil, err
			}
			part.Connector = connector
			parts = append(parts, part)
		}
		if segment[b[0]:b[1]] == "And" {
			connector = types.ConnectorAnd
		} else {
			connector = types.ConnectorOr
		}
		pos = b[1]
	}
	if atom := segment[pos:]; atom != "" {
		part, err := parseAtom(method, atom)
		if err != nil {
			return nil, err
		}
		part.Connector = connector
		parts = append(parts, part)
	}

	// The first part never carries a connector; a leading And/Or would
	// otherwise leave one attached.
	if len(parts) > 0 {
		parts[0].Connector = ""
	}
	return parts, nil
}

// parseAtom resolves one condition atom into its field name and operator,
// matching the longest known operator suffix first. An atom with no operator
// suffix is an equality check on the bare field name.
func parseAtom(method, atom string) (types.QueryPart, error) {
	for _, cs := range conditionSuffixes {
		if strings.HasSuffix(atom, cs.suffix) {
			field := strings.TrimSuffix(atom, cs.suffix)
			if !fieldAtomRe.MatchString(field) {
				return types.QueryPart{}, &types.SyntaxError{Method: method, Atom: atom}
			}
			return types.QueryPart{Field: CamelToSnake(field), Operator: cs.cond}, nil
		}
	}
	if !fieldAtomRe.MatchString(atom) {
		return types.QueryPart{}, &types.SyntaxError{Method: method, Atom: atom}
	}
	return types.QueryPart{Field: CamelToSnake(atom), Operator: types.CondEquals}, nil
}

// parseOrderBy splits the ordering segment on And and resolves the optional
// Asc/Desc suffix of each clause. Missing direction defaults to ascending.
func parseOrderBy(segment string) []types.OrderKey {
	if segment == "" {
		return nil
	}
	var keys []types.OrderKey
	for _, token := range strings.Split(segment, "And") {
		if token == "" {
			continue
		}
		dir := types.Asc
		switch {
		case strings.HasSuffix(token, "Desc"):
			token = strings.TrimSuffix(token, "Desc")
			dir = types.Desc
		case strings.HasSuffix(token, "Asc"):
			token = strings.TrimSuffix(token, "Asc")
		}
		if token == "" {
			continue
		}
		keys = append(keys, types.OrderKey{Field: CamelToSnake(token), Direction: dir})
	}
	return keys
}

// CamelToSnake converts a boundary-delimited camel-case name to the storage
// naming convention via two insertion passes, then lowercases the result.
// UserIDNumber becomes user_id_number.
func CamelToSnake(s string) string {
	s = camelBoundaryAcronym.ReplaceAllString(s, "${1}_${2}")
	s = camelBoundaryLower.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}

// NormalizeMethodName maps a snake_case derivation name such as
// find_by_email to the camel-case convention the parser expects. Names
// without underscores pass through unchanged.
func NormalizeMethodName(name string) string {
	if !strings.Contains(name, "_") {
		return name
	}
	parts := strings.Split(name, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
