package paper

import (
	"encoding/json"
	"os"

	"hftexec/internal/errors"
	"hftexec/internal/report"
)

// LoadScript reads a mass status JSON file.
func LoadScript(path string) (*report.ExecutionMassStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read script %s", path)
	}
	ms := &report.ExecutionMassStatus{}
	if err := json.Unmarshal(data, ms); err != nil {
		return nil, errors.Wrapf(err, "decode script %s", path)
	}
	return ms, nil
}
