// Package calendar provides a small leap-year aware date value used by the
// vaccination scheduler. Dates are plain year/month/day triples with no time
// zone. They are ordered by their YYYYMMDD numeric key.
package calendar
