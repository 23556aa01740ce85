package channel

// SelectionType is the predicate form of a selection.
type SelectionType string

const (
	// SelectionSingle matches one unique id. Id 0 selects nothing.
	SelectionSingle SelectionType = "single"
	// SelectionMulti matches any id in a set.
	SelectionMulti SelectionType = "multi"
	// SelectionInterval matches values inside a closed interval.
	SelectionInterval SelectionType = "interval"
)

// When names the selection a condition tests.
type When struct {
	Selection string
	Type      SelectionType

	// Channel is the tested channel for interval selections.
	Channel string

	// EmptyMatchesAll makes an empty multi selection match every element.
	EmptyMatchesAll bool
}

// Condition overrides a channel while its selection matches.
//
// Exactly one of Value and Ref must be set. Value is compiled like a value
// channel of the same type; Ref names another channel whose scaled output
// is used instead.
type Condition struct {
	When  When
	Value *Config
	Ref   string
}
