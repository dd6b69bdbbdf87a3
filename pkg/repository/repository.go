package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Repository is a typed facade over a gateway for one entity type. Explicit
// CRUD methods delegate straight to the gateway; derived finders are
// compiled from their method name on first use and cached for the lifetime
// of the repository.
//
// A Repository shares its gateway's concurrency contract: safe to share only
// if the underlying session is.
type Repository[T any] struct {
	gw     types.Gateway
	mapper Mapper[T]
	desc   types.EntityDescriptor

	mu      sync.Mutex
	methods map[string]*derivedMethod
}

// New binds a mapper to a gateway. The mapper's descriptor is validated once
// here so every later operation can assume it is well formed.
func New[T any](gw types.Gateway, mapper Mapper[T]) (*Repository[T], error) {
	desc := mapper.Descriptor()
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("repository for %q: %w", desc.TableName, err)
	}
	return &Repository[T]{
		gw:      gw,
		mapper:  mapper,
		desc:    desc,
		methods: make(map[string]*derivedMethod),
	}, nil
}

// Descriptor returns the descriptor of the bound entity.
func (r *Repository[T]) Descriptor() types.EntityDescriptor {
	return r.desc
}

// Save stores a new entity and returns it hydrated with generated identity
// and column defaults.
func (r *Repository[T]) Save(ctx context.Context, entity T) (T, error) {
	var zero T
	row, err := r.mapper.Dehydrate(entity)
	if err != nil {
		return zero, err
	}
	stored, err := r.gw.Save(ctx, r.desc, row)
	if err != nil {
		return zero, err
	}
	return r.mapper.Hydrate(stored)
}

// SaveAll stores every entity in order, returning the hydrated results. The
// first failure stops the batch.
func (r *Repository[T]) SaveAll(ctx context.Context, entities []T) ([]T, error) {
	out := make([]T, 0, len(entities))
	for _, e := range entities {
		stored, err := r.Save(ctx, e)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

// FindByID returns the entity with the given primary key, or ErrNotFound.
func (r *Repository[T]) FindByID(ctx context.Context, id any) (T, error) {
	var zero T
	row, err := r.gw.FindByID(ctx, r.desc, id)
	if err != nil {
		return zero, err
	}
	return r.mapper.Hydrate(row)
}

// FindAll returns every stored entity.
func (r *Repository[T]) FindAll(ctx context.Context) ([]T, error) {
	rows, err := r.gw.FindAll(ctx, r.desc)
	if err != nil {
		return nil, err
	}
	return r.hydrateAll(rows)
}

// Update writes an entity identified by its primary key. A detached entity
// whose key is not stored yet is inserted.
func (r *Repository[T]) Update(ctx context.Context, entity T) (T, error) {
	var zero T
	row, err := r.mapper.Dehydrate(entity)
	if err != nil {
		return zero, err
	}
	stored, err := r.gw.Update(ctx, r.desc, row)
	if err != nil {
		return zero, err
	}
	return r.mapper.Hydrate(stored)
}

// Delete removes the stored row backing the entity, or ErrNotFound.
func (r *Repository[T]) Delete(ctx context.Context, entity T) error {
	row, err := r.mapper.Dehydrate(entity)
	if err != nil {
		return err
	}
	pk, _ := r.desc.PrimaryKey()
	return r.gw.Delete(ctx, r.desc, row[pk.Name])
}

// DeleteByID removes the row with the given primary key, or ErrNotFound.
func (r *Repository[T]) DeleteByID(ctx context.Context, id any) error {
	return r.gw.Delete(ctx, r.desc, id)
}

// DeleteAllByID removes every listed key. The first failure stops the batch.
func (r *Repository[T]) DeleteAllByID(ctx context.Context, ids []any) error {
	for _, id := range ids {
		if err := r.gw.Delete(ctx, r.desc, id); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll removes every row of the bound table and returns the number
// removed.
func (r *Repository[T]) DeleteAll(ctx context.Context) (int64, error) {
	q := types.CompiledQuery{
		SQL:       "DELETE FROM " + r.desc.TableName,
		Operation: types.OpDelete,
	}
	res, err := r.gw.ExecuteQuery(ctx, q, r.desc, nil)
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// Exists reports whether a row with the given primary key exists.
func (r *Repository[T]) Exists(ctx context.Context, id any) (bool, error) {
	return r.gw.Exists(ctx, r.desc, id)
}

// Count returns the number of stored rows.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	return r.gw.Count(ctx, r.desc)
}

func (r *Repository[T]) hydrateAll(rows []types.Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		e, err := r.mapper.Hydrate(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
