// Package classifier partitions validated payload elements by vertex count.
package classifier

import "github.com/polymerwire/modelhub/ingest/internal/models"

// PlanarMinVertices is the smallest vertex count treated as a face.
const PlanarMinVertices = 3

// StateClassified is the checkpoint emitted once the payload is partitioned.
const StateClassified = "CLASSIFIED"

// Classify splits elements into linear (<= 2 vertices) and planar groups,
// preserving input order within each group. Both groups are non-nil.
func Classify(elements []models.PayloadElement) models.ClassifiedPayload {
	out := models.ClassifiedPayload{
		LinearElements: make([]models.PayloadElement, 0, len(elements)),
		PlanarElements: make([]models.PayloadElement, 0),
	}
	for _, el := range elements {
		if el.VertexCount() >= PlanarMinVertices {
			out.PlanarElements = append(out.PlanarElements, el)
		} else {
			out.LinearElements = append(out.LinearElements, el)
		}
	}
	return out
}

// Apply classifies sub.Elements and replaces the submission payload.
func Apply(sub *models.Submission) models.ClassifiedPayload {
	c := Classify(sub.Elements)
	sub.Classified = &c
	return c
}
