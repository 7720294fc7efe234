package models

// OutcomeKind distinguishes results that share a wire shape.
type OutcomeKind int

const (
	OutcomeStored OutcomeKind = iota
	OutcomeStaged
	OutcomeRejected
	OutcomeConflict
	OutcomeWriteFailed
)

// Outcome is the result of one pipeline run. On the wire it is exactly one
// of {"success": true}, {"success": false} or {"error": "..."}.
type Outcome struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`

	Kind OutcomeKind `json:"-"`
	Name string      `json:"-"`
}

var outcomeNames = [...]string{"stored", "staged", "rejected", "conflict", "write_failed"}

func (k OutcomeKind) String() string {
	if int(k) < len(outcomeNames) {
		return outcomeNames[k]
	}
	return "unknown"
}

func boolPtr(b bool) *bool { return &b }

// Stored is a successful write. staged selects the tessellation path.
func Stored(name string, staged bool) Outcome {
	kind := OutcomeStored
	if staged {
		kind = OutcomeStaged
	}
	return Outcome{Success: boolPtr(true), Kind: kind, Name: name}
}

// WriteFailed is an infrastructure failure on an otherwise valid submission.
func WriteFailed(name string) Outcome {
	return Outcome{Success: boolPtr(false), Kind: OutcomeWriteFailed, Name: name}
}

// Rejected reports a validation or conflict error to the caller.
func Rejected(name string, err *ValidationError) Outcome {
	kind := OutcomeRejected
	if err.Kind.Category() == CategoryConflict {
		kind = OutcomeConflict
	}
	return Outcome{Error: err.Message, Kind: kind, Name: name}
}

// OK reports whether the submission was stored.
func (o Outcome) OK() bool { return o.Success != nil && *o.Success }
