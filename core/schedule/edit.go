package schedule

// Bounds decides whether a staged date string is acceptable. An empty
// string means removal and implementations usually accept it.
type Bounds interface {
	InBounds(date string) bool
}

// Edit is a pending change staged against a confirmed value.
type Edit struct {
	pending string
	staged  bool
}

// Stage records value as the pending change. An empty value requests removal.
func (e *Edit) Stage(value string) {
	e.pending = value
	e.staged = true
}

// Discard drops the pending change.
func (e *Edit) Discard() {
	e.pending = ""
	e.staged = false
}

// Pending returns the staged value and whether one is staged.
func (e Edit) Pending() (string, bool) { return e.pending, e.staged }

func (e Edit) isNew(current string) bool {
	return e.staged && e.pending != "" && e.pending != current
}

func (e Edit) isRemove() bool {
	return e.staged && e.pending == ""
}

func inBounds(b Bounds, date string) bool {
	return b == nil || b.InBounds(date)
}
