// Package scheduler projects a vaccine catalog onto the calendar. Every
// selected vaccine contributes one dose per offset, dated offset days after
// the anchor date; doses landing on the same date share one entry.
package scheduler
