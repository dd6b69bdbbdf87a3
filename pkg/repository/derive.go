package repository

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/larder/internal/query"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// derivedMethod is one compiled derivation-convention query, cached under its
// normalized name.
type derivedMethod struct {
	compiled types.CompiledQuery
}

// method returns the compiled query for a derivation-convention name,
// compiling and caching it on first use. Names may be snake_case; they are
// normalized to camelCase before parsing.
func (r *Repository[T]) method(name string) (*derivedMethod, error) {
	normalized := query.NormalizeMethodName(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.methods[normalized]; ok {
		return m, nil
	}

	parsed, err := query.Parse(normalized)
	if err != nil {
		return nil, err
	}
	compiled, err := query.Generate(parsed, r.desc.TableName)
	if err != nil {
		return nil, err
	}
	m := &derivedMethod{compiled: compiled}
	r.methods[normalized] = m
	return m, nil
}

// bindArgs zips caller arguments to the compiled query's placeholders,
// wrapping string arguments of LIKE-family operators with the operator's
// wildcard pattern.
func bindArgs(m *derivedMethod, args []any) ([]any, error) {
	params := m.compiled.Params
	if len(args) != len(params) {
		return nil, fmt.Errorf("%w: %q takes %d, got %d",
			types.ErrArgumentCount, m.compiled.SQL, len(params), len(args))
	}

	bound := make([]any, len(args))
	for i, p := range params {
		switch p.Operator {
		case types.CondContaining:
			bound[i] = fmt.Sprintf("%%%v%%", args[i])
		case types.CondStartingWith:
			bound[i] = fmt.Sprintf("%v%%", args[i])
		case types.CondEndingWith:
			bound[i] = fmt.Sprintf("%%%v", args[i])
		default:
			bound[i] = args[i]
		}
	}
	return bound, nil
}

// expectOperation guards a derived call site against a name whose prefix
// compiles to a different statement shape.
func expectOperation(m *derivedMethod, want types.Operation) error {
	if m.compiled.Operation != want {
		return fmt.Errorf("%w: %q compiles to %s, called as %s",
			types.ErrOperationMismatch, m.compiled.SQL, m.compiled.Operation, want)
	}
	return nil
}

// Find runs a findBy-derived query and returns every matching entity.
func (r *Repository[T]) Find(ctx context.Context, name string, args ...any) ([]T, error) {
	m, err := r.method(name)
	if err != nil {
		return nil, err
	}
	if err := expectOperation(m, types.OpFind); err != nil {
		return nil, err
	}
	bound, err := bindArgs(m, args)
	if err != nil {
		return nil, err
	}
	res, err := r.gw.ExecuteQuery(ctx, m.compiled, r.desc, bound)
	if err != nil {
		return nil, err
	}
	return r.hydrateAll(res.Rows)
}

// FindOne runs a findBy-derived query expected to match at most one entity.
// It returns ErrNotFound when nothing matches and the first row when several
// do.
func (r *Repository[T]) FindOne(ctx context.Context, name string, args ...any) (T, error) {
	var zero T
	matches, err := r.Find(ctx, name, args...)
	if err != nil {
		return zero, err
	}
	if len(matches) == 0 {
		return zero, types.ErrNotFound
	}
	return matches[0], nil
}

// CountBy runs a countBy-derived query.
func (r *Repository[T]) CountBy(ctx context.Context, name string, args ...any) (int64, error) {
	m, err := r.method(name)
	if err != nil {
		return 0, err
	}
	if err := expectOperation(m, types.OpCount); err != nil {
		return 0, err
	}
	bound, err := bindArgs(m, args)
	if err != nil {
		return 0, err
	}
	res, err := r.gw.ExecuteQuery(ctx, m.compiled, r.desc, bound)
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// ExistsBy runs an existsBy-derived query.
func (r *Repository[T]) ExistsBy(ctx context.Context, name string, args ...any) (bool, error) {
	m, err := r.method(name)
	if err != nil {
		return false, err
	}
	if err := expectOperation(m, types.OpExists); err != nil {
		return false, err
	}
	bound, err := bindArgs(m, args)
	if err != nil {
		return false, err
	}
	res, err := r.gw.ExecuteQuery(ctx, m.compiled, r.desc, bound)
	if err != nil {
		return false, err
	}
	return res.Exists, nil
}

// DeleteBy runs a deleteBy-derived query and returns the number of rows
// removed.
func (r *Repository[T]) DeleteBy(ctx context.Context, name string, args ...any) (int64, error) {
	m, err := r.method(name)
	if err != nil {
		return 0, err
	}
	if err := expectOperation(m, types.OpDelete); err != nil {
		return 0, err
	}
	bound, err := bindArgs(m, args)
	if err != nil {
		return 0, err
	}
	res, err := r.gw.ExecuteQuery(ctx, m.compiled, r.desc, bound)
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}
