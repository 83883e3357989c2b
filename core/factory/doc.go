// Package factory provides a generic registry of named constructors. Catalog
// sources, metrics sinks and plan stores register themselves here and are
// built from configuration entries of the form {type, conf}.
package factory
