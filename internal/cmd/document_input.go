package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

// documentSource is one submission read from disk or stdin.
type documentSource struct {
	Name  string
	Input core.SubmissionInput
}

var documentExtensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
}

// loadDocuments reads every path in order. Directories contribute their
// JSON and YAML files sorted by name; "-" reads stdin.
func loadDocuments(paths []string, stdin io.Reader) ([]documentSource, error) {
	sources := make([]documentSource, 0, len(paths))
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "-" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			input, err := decodeSubmissionInput(data)
			if err != nil {
				return nil, fmt.Errorf("stdin: %w", err)
			}
			sources = append(sources, documentSource{Name: "stdin", Input: input})
			continue
		}

		files, err := expandDocumentPath(path)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			data, err := os.ReadFile(file) // #nosec G304 -- user-supplied document path
			if err != nil {
				return nil, err
			}
			input, err := decodeSubmissionInput(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			sources = append(sources, documentSource{Name: file, Input: input})
		}
	}
	return sources, nil
}

func expandDocumentPath(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !documentExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: no .json, .yaml or .yml documents", path)
	}
	return files, nil
}

// decodeSubmissionInput accepts either a full submission (an object with a
// "document" key) or a bare product document, in JSON or YAML.
func decodeSubmissionInput(data []byte) (core.SubmissionInput, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return core.SubmissionInput{}, fmt.Errorf("parse document: %w", err)
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return core.SubmissionInput{}, errors.New("document must be an object")
	}

	normalized, err := json.Marshal(fields)
	if err != nil {
		return core.SubmissionInput{}, fmt.Errorf("normalize document: %w", err)
	}

	var input core.SubmissionInput
	if _, wrapped := fields["document"]; wrapped {
		if err := json.Unmarshal(normalized, &input); err != nil {
			return core.SubmissionInput{}, fmt.Errorf("decode submission: %w", err)
		}
		return input, nil
	}
	if err := json.Unmarshal(normalized, &input.Document); err != nil {
		return core.SubmissionInput{}, fmt.Errorf("decode document: %w", err)
	}
	return input, nil
}

// submissionOverrides are command-line values that replace file values when set.
type submissionOverrides struct {
	Type      string
	Group     string
	Signature string
}

func (o submissionOverrides) apply(input core.SubmissionInput) core.SubmissionInput {
	if v := strings.TrimSpace(o.Type); v != "" {
		input.Type = v
	}
	if v := strings.TrimSpace(o.Group); v != "" {
		input.ProductGroup = v
	}
	if v := strings.TrimSpace(o.Signature); v != "" {
		input.Signature = v
	}
	return input
}
