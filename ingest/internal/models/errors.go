package models

import "fmt"

// ErrorKind names a rejection reason.
type ErrorKind int

const (
	KindMissingSections ErrorKind = iota + 1
	KindMissingModelInfoKeys
	KindTimestamp
	KindInvalidUnits
	KindMissingPayloadKeys
	KindEmptyVertices
	KindEmptyMetadata
	KindAlreadyExists
	KindInvalidName
)

// Category groups kinds for metrics and HTTP status mapping.
type Category string

const (
	CategoryShape    Category = "shape"
	CategorySemantic Category = "semantic"
	CategoryConflict Category = "conflict"
)

var kindNames = map[ErrorKind]string{
	KindMissingSections:      "missing_sections",
	KindMissingModelInfoKeys: "missing_model_info_keys",
	KindTimestamp:            "timestamp",
	KindInvalidUnits:         "invalid_units",
	KindMissingPayloadKeys:   "missing_payload_keys",
	KindEmptyVertices:        "empty_vertices",
	KindEmptyMetadata:        "empty_metadata",
	KindAlreadyExists:        "already_exists",
	KindInvalidName:          "invalid_name",
}

func (k ErrorKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Category returns the taxonomy group of k.
func (k ErrorKind) Category() Category {
	switch k {
	case KindMissingSections, KindMissingModelInfoKeys, KindMissingPayloadKeys:
		return CategoryShape
	case KindAlreadyExists:
		return CategoryConflict
	default:
		return CategorySemantic
	}
}

// ValidationError is a user-facing rejection. Message is returned to the
// caller verbatim.
type ValidationError struct {
	Kind    ErrorKind
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is matches any ValidationError of the same kind, so the sentinels below
// work with errors.Is regardless of message.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

// Sentinels carrying the caller-facing message for each kind.
var (
	ErrMissingSections = &ValidationError{KindMissingSections,
		"'modelInformation' and 'payload' properties are required"}
	ErrMissingModelInfoKeys = &ValidationError{KindMissingModelInfoKeys,
		"'modelInformation' must contain 'units' and 'name'"}
	ErrTimestamp = &ValidationError{KindTimestamp,
		"'name' must end with a timestamp in the form _YYMMDD_HHMMSS"}
	ErrInvalidName = &ValidationError{KindInvalidName,
		"'name' must not contain '/'"}
	ErrInvalidUnits = &ValidationError{KindInvalidUnits,
		"'units' values must be either 'imperial' or 'metric'"}
	ErrMissingPayloadKeys = &ValidationError{KindMissingPayloadKeys,
		"'payload' must include 'vertices' and 'metadata' for each element"}
	ErrEmptyVertices = &ValidationError{KindEmptyVertices,
		"'vertices' data is empty"}
	ErrEmptyMetadata = &ValidationError{KindEmptyMetadata,
		"'metadata' field is empty"}
	ErrAlreadyExists = &ValidationError{KindAlreadyExists,
		"File with this name already exists in S3 bucket. Please rename file and try again."}
)
