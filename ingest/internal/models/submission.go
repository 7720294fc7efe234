// Package models holds the documents that move through the ingest pipeline.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Top-level sections of a submitted model document.
const (
	SectionModelInformation = "modelInformation"
	SectionPayload          = "payload"
)

// Keys inside modelInformation the pipeline reads or writes.
const (
	InfoName        = "name"
	InfoUnits       = "units"
	InfoDestination = "destination"
	InfoUntagged    = "untagged"
	InfoAttributes  = "s3_attributes"
)

// ErrNotObject is returned when a submission body is valid JSON but not an object.
var ErrNotObject = errors.New("submission must be a JSON object")

// Submission is one model document for the duration of a pipeline run.
//
// Presence of each section is tracked separately from its value so that
// a missing payload and an empty one are distinguishable.
type Submission struct {
	ModelInformation map[string]any

	// Payload is the payload section exactly as submitted.
	Payload json.RawMessage

	// Elements is filled in by the structural validator.
	Elements []PayloadElement

	// Classified replaces Payload on output once set.
	Classified *ClassifiedPayload

	// Extra keeps unrecognised top-level sections so they are stored verbatim.
	Extra map[string]json.RawMessage

	hasInfo    bool
	hasPayload bool
}

// DecodeSubmission parses a request body into a Submission.
func DecodeSubmission(data []byte) (*Submission, error) {
	var s Submission
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UnmarshalJSON records which sections are present. A modelInformation that is
// not an object is kept as present with a nil map.
func (s *Submission) UnmarshalJSON(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if top == nil {
		return ErrNotObject
	}

	*s = Submission{}
	if raw, ok := top[SectionModelInformation]; ok {
		s.hasInfo = true
		var info map[string]any
		if json.Unmarshal(raw, &info) == nil {
			s.ModelInformation = info
		}
		delete(top, SectionModelInformation)
	}
	if raw, ok := top[SectionPayload]; ok {
		s.hasPayload = true
		s.Payload = raw
		delete(top, SectionPayload)
	}
	if len(top) > 0 {
		s.Extra = top
	}
	return nil
}

// MarshalJSON writes the stored form of the document: extra sections,
// modelInformation and either the classified or the raw payload.
func (s Submission) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+2)
	for k, v := range s.Extra {
		out[k] = v
	}
	if s.hasInfo || s.ModelInformation != nil {
		out[SectionModelInformation] = s.ModelInformation
	}
	switch {
	case s.Classified != nil:
		out[SectionPayload] = s.Classified
	case s.hasPayload:
		out[SectionPayload] = s.Payload
	}
	return json.Marshal(out)
}

// HasModelInformation reports whether the modelInformation section was submitted.
func (s *Submission) HasModelInformation() bool { return s.hasInfo }

// HasPayload reports whether the payload section was submitted.
func (s *Submission) HasPayload() bool { return s.hasPayload }

// Name returns modelInformation.name when it is a string.
func (s *Submission) Name() string {
	name, _ := s.ModelInformation[InfoName].(string)
	return name
}

// Units returns modelInformation.units when it is a string.
func (s *Submission) Units() string {
	units, _ := s.ModelInformation[InfoUnits].(string)
	return units
}

// SetDestination annotates the document with the bucket a staged model is bound for.
func (s *Submission) SetDestination(bucket string) {
	if s.ModelInformation == nil {
		s.ModelInformation = make(map[string]any)
	}
	s.ModelInformation[InfoDestination] = bucket
}

// NewSubmission builds a submission in code, as tests and modelctl do.
func NewSubmission(info map[string]any, payload any) (*Submission, error) {
	s := &Submission{ModelInformation: info, hasInfo: info != nil}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		s.Payload = raw
		s.hasPayload = true
	}
	return s, nil
}
