package model

// FormContext is the submitted form handed to form hooks. The model does not
// impose a schema; hooks read the keys they understand.
type FormContext interface {
	Value(key string) string
}

// Well-known form keys.
const (
	FormDateOfBirth      = "date_of_birth"
	FormFirstVaccination = "first_vaccination"
)

// FormValues is a map backed FormContext.
type FormValues map[string]string

// Value returns the value stored under key or an empty string.
func (f FormValues) Value(key string) string { return f[key] }
