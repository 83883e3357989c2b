// Package schedule holds the result of scheduling: a Calendar of entries,
// one per date, each carrying the doses due that day.
//
// The Calendar keeps three invariants across every mutation: entries are
// sorted ascending by date, no two entries share a date, and no entry is
// empty. Edits are two-phase: a new date is staged on an Entry or Dose and
// later confirmed through the Calendar or discarded.
package schedule
