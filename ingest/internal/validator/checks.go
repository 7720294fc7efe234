package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/polymerwire/modelhub/ingest/internal/models"
	"github.com/polymerwire/modelhub/ingest/internal/timestamp"
)

// Sections requires both top-level sections.
type Sections struct{}

func (Sections) Check(ctx context.Context, sub *models.Submission, report Reporter) error {
	if !sub.HasModelInformation() || !sub.HasPayload() {
		return models.ErrMissingSections
	}
	report(ctx, StateStructureOK, "modelInformation and payload present")
	return nil
}

// ModelInfo requires name and units in modelInformation. A non-string
// name counts as missing.
type ModelInfo struct{}

func (ModelInfo) Check(ctx context.Context, sub *models.Submission, report Reporter) error {
	_, nameIsString := sub.ModelInformation[models.InfoName].(string)
	_, hasUnits := sub.ModelInformation[models.InfoUnits]
	if !nameIsString || !hasUnits {
		return models.ErrMissingModelInfoKeys
	}
	report(ctx, StateStructureOK, "modelInformation has name and units")
	return nil
}

// Timestamp requires the name to carry a generated suffix. Names are also
// object keys under the data folder, so a path separator is rejected.
type Timestamp struct{}

func (Timestamp) Check(ctx context.Context, sub *models.Submission, report Reporter) error {
	if strings.Contains(sub.Name(), "/") {
		return models.ErrInvalidName
	}
	if err := timestamp.Validate(sub.Name()); err != nil {
		return models.ErrTimestamp
	}
	report(ctx, StateTimestampOK, sub.Name())
	return nil
}

// Units accepts exactly "metric" or "imperial".
type Units struct{}

func (Units) Check(ctx context.Context, sub *models.Submission, report Reporter) error {
	switch units := sub.Units(); units {
	case "metric", "imperial":
		report(ctx, StateUnitsOK, units)
		return nil
	default:
		return models.ErrInvalidUnits
	}
}

// Payload checks every element in submission order and stores the decoded
// elements on the submission.
type Payload struct{}

func (Payload) Check(ctx context.Context, sub *models.Submission, report Reporter) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(sub.Payload, &raw); err != nil || isNull(sub.Payload) {
		return models.ErrMissingPayloadKeys
	}

	elements := make([]models.PayloadElement, 0, len(raw))
	for i, r := range raw {
		el, err := checkElement(ctx, i, r, report)
		if err != nil {
			return err
		}
		elements = append(elements, el)
	}
	sub.Elements = elements
	return nil
}

func checkElement(ctx context.Context, i int, raw json.RawMessage, report Reporter) (models.PayloadElement, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return models.PayloadElement{}, models.ErrMissingPayloadKeys
	}
	vertices, hasVertices := fields["vertices"]
	metadata, hasMetadata := fields["metadata"]
	if !hasVertices || !hasMetadata {
		return models.PayloadElement{}, models.ErrMissingPayloadKeys
	}
	report(ctx, StatePayloadKeysOK, elementDetail(i))

	// Anything that is not a non-empty array or object counts as empty.
	var verts []json.RawMessage
	if json.Unmarshal(vertices, &verts) != nil || len(verts) == 0 {
		return models.PayloadElement{}, models.ErrEmptyVertices
	}
	report(ctx, StateVerticesOK, fmt.Sprintf("%s has %d vertices", elementDetail(i), len(verts)))

	var meta map[string]json.RawMessage
	if json.Unmarshal(metadata, &meta) != nil || len(meta) == 0 {
		return models.PayloadElement{}, models.ErrEmptyMetadata
	}
	report(ctx, StateMetadataOK, elementDetail(i))

	return models.PayloadElement{Vertices: verts, Metadata: meta, Raw: raw}, nil
}

func elementDetail(i int) string {
	return fmt.Sprintf("element %d", i)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
