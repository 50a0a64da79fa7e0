package domain

// Record constrains store element types to entities that can produce
// independent copies of themselves. Stores clone on every read and write so
// callers can never alias internal state.
type Record[E any] interface {
	Entity
	Clone() E
}
