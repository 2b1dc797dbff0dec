package models

import "strconv"

// Label is the yes/no determination extracted from a model reply.
type Label string

const (
	LabelYes     Label = "Yes"
	LabelNo      Label = "No"
	LabelUnknown Label = "Unknown"
)

// NoConfidence marks a reply that carried no percentage at all. It is not a
// genuine 0% judgment and must be read as "unknown".
const NoConfidence = 0.0

// Frame represents one sampled still image at a known ordinal position
type Frame struct {
	Index int
	ID    string
	Load  func() ([]byte, error)
}

// Record represents the judgment for a single frame
type Record struct {
	FrameID    string  `json:"frame"`
	Timestamp  float64 `json:"timestamp"`
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// HasConfidence reports whether the record carries a real confidence value.
func (r Record) HasConfidence() bool {
	return r.Confidence != NoConfidence
}

// Verdict is the final judgment for a whole video. Summary holds the last
// model summary verbatim.
type Verdict struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary"`
	Passes     int     `json:"passes"`
}

// FrameSearchResult represents a frame returned by a similarity search
type FrameSearchResult struct {
	FramePath  string
	Timestamp  float64
	Label      Label
	Confidence float64
	Similarity float64
}

// FormatNumber prints whole numbers with one decimal ("80.0") and keeps
// every other value at full precision ("87.25").
func FormatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
