package embeddings

import "github.com/bdougie/videojudge/internal/models"

// Dimensions is the length of a judgment vector
const Dimensions = 4

// Judgment encodes a label and confidence as a vector so frames with similar
// judgments sit close together. Layout: one-hot yes/no/unknown followed by
// confidence scaled to [0,1]. A missing confidence encodes as 0.
func Judgment(label models.Label, confidence float64) []float32 {
	v := make([]float32, Dimensions)
	switch label {
	case models.LabelYes:
		v[0] = 1
	case models.LabelNo:
		v[1] = 1
	default:
		v[2] = 1
	}
	c := confidence / 100
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	v[3] = float32(c)
	return v
}

// Record is Judgment applied to a frame record
func Record(r models.Record) []float32 {
	return Judgment(r.Label, r.Confidence)
}
