// Package catalog supplies the vaccine definitions of each vaccination
// scheme. Built-in schemes are plain data tables plus the dependency hooks
// that tie their definitions together. Custom schemes can be loaded from
// YAML or JSON files.
package catalog
