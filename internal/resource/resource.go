// Package resource models external resources the orchestrator reasons about
// without owning their lifecycle.
package resource

// Existence is the tri-state result of probing an external resource.
// Unknown means the query itself failed transiently (permission propagation,
// network hiccup) and must not be collapsed into Absent: treating Unknown as
// Absent triggers duplicate-create attempts.
type Existence int

const (
	Absent Existence = iota
	Present
	Unknown
)

// String returns the lowercase name of the existence state.
func (e Existence) String() string {
	switch e {
	case Absent:
		return "absent"
	case Present:
		return "present"
	case Unknown:
		return "unknown"
	default:
		return "invalid"
	}
}
