package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/ljsim/internal/dynamo"
)

type ExportData struct {
	RunMetadata
	Samples []dynamo.Sample `json:"samples"`
}

// ExportJSON writes the run metadata and every sample as one indented
// JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, samples []dynamo.Sample) error {
	data := ExportData{
		RunMetadata: meta,
		Samples:     samples,
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
