// Package larder holds module-level metadata.
package larder

// Version is the larder module version.
const Version = "0.3.0"
