// Package types defines the shared contract layer for Larder: entity
// descriptors, the derived-query data model, configuration, standard errors,
// and the Store/Gateway/Transactor interfaces implemented by storage
// backends. It has no dependencies outside the standard library so that
// every other package can import it freely.
package types
