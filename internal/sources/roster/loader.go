package roster

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/ctfboard/internal/domain"
)

// Loader reads a service catalog and team list from a yaml file.
type Loader struct {
	filePath string
}

// NewLoader creates a roster loader for filePath.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string { return l.filePath }

// Load reads, parses and validates the roster file.
func (l *Loader) Load() (domain.Roster, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return domain.Roster{}, fmt.Errorf("failed to read roster file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a roster document. Unknown keys are rejected so a typo
// does not silently fall back to an empty list.
func Parse(data []byte) (domain.Roster, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Roster{}, errors.New("roster file is empty")
		}
		return domain.Roster{}, fmt.Errorf("failed to parse roster yaml: %w", err)
	}

	r := domain.Roster{
		Services: trim(file.Services),
		Pending:  trim(file.Pending),
		Teams:    trim(file.Teams),
		Boosted:  trim(file.Boosted),
	}
	if err := r.Validate(); err != nil {
		return domain.Roster{}, err
	}
	return r, nil
}

func trim(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
