// Package planner implements the workflow around the scheduling engine. A
// Session holds the user's scheme, selection and form; submitting the form
// builds the calendar, which is then edited through the session. Every step
// is published as an Event and confirmed calendar changes are appended to
// the plan log.
package planner
