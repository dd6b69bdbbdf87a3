// Package repository provides a typed facade over a persistence gateway.
// A Repository binds an entity type to its descriptor through a Mapper and
// exposes explicit CRUD methods plus derived finders compiled from
// derivation-convention method names.
package repository

import "github.com/mesh-intelligence/larder/pkg/types"

// Mapper converts between an entity type and its row representation. The
// descriptor it returns drives schema generation, hydration, and query
// compilation for the bound table.
type Mapper[T any] interface {
	// Descriptor returns the entity's table descriptor.
	Descriptor() types.EntityDescriptor

	// Hydrate builds an entity from a stored row.
	Hydrate(row types.Row) (T, error)

	// Dehydrate flattens an entity into a row keyed by column name.
	Dehydrate(entity T) (types.Row, error)
}
