package output

import (
	"encoding/json"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

// JSONFormatter renders outcomes as a JSON array.
type JSONFormatter struct {
	Indent bool
}

// FormatOutcomes renders outcomes as JSON. Nil entries are skipped.
func (f *JSONFormatter) FormatOutcomes(outcomes []*core.SubmissionOutcome) (string, error) {
	list := make([]*core.SubmissionOutcome, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome != nil {
			list = append(list, outcome)
		}
	}

	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(list, "", "  ")
	} else {
		data, err = json.Marshal(list)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
