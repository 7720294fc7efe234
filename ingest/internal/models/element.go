package models

import "encoding/json"

// PayloadElement is one geometry record. Raw keeps the element exactly as
// submitted so that fields the pipeline does not read survive storage.
type PayloadElement struct {
	Vertices []json.RawMessage
	Metadata map[string]json.RawMessage

	Raw json.RawMessage
}

// VertexCount is the number of coordinate tuples in the element.
func (e PayloadElement) VertexCount() int { return len(e.Vertices) }

// MarshalJSON returns the submitted bytes when available.
func (e PayloadElement) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	return json.Marshal(struct {
		Vertices []json.RawMessage         `json:"vertices"`
		Metadata map[string]json.RawMessage `json:"metadata"`
	}{e.Vertices, e.Metadata})
}

// UnmarshalJSON accepts the stored form of an element.
func (e *PayloadElement) UnmarshalJSON(data []byte) error {
	var v struct {
		Vertices []json.RawMessage         `json:"vertices"`
		Metadata map[string]json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	e.Vertices = v.Vertices
	e.Metadata = v.Metadata
	e.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// ClassifiedPayload is the stored shape of payload: a total, disjoint
// partition of the submitted elements by vertex count.
type ClassifiedPayload struct {
	LinearElements []PayloadElement `json:"linearElements"`
	PlanarElements []PayloadElement `json:"planarElements"`
}

// Len is the number of elements across both groups.
func (c ClassifiedPayload) Len() int {
	return len(c.LinearElements) + len(c.PlanarElements)
}

// HasPlanar reports whether any element needs tessellation.
func (c ClassifiedPayload) HasPlanar() bool {
	return len(c.PlanarElements) > 0
}
