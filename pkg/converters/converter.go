package converters

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ko3luhbka/dephell/pkg/models"
)

// Converter maps one project-file format to and from the canonical model.
//
// Implementations are found in format subpackages (e.g., setuppy.Converter).
// Loads must be all-or-nothing: on error it returns a nil Project. Dumps
// must be deterministic: the output depends only on the logical content of
// reqs and project, never on their order.
type Converter interface {
	// Name returns the format identifier (e.g., "setuppy", "pip").
	Name() string

	// Supports reports whether this converter handles the given filename
	// (a basename such as "setup.py").
	Supports(filename string) bool

	// Load reads and parses the file at path.
	Load(path string) (*models.Project, error)

	// Loads parses content.
	Loads(content string) (*models.Project, error)

	// Dump renders reqs and project and writes the result to path.
	Dump(path string, reqs []models.Requirement, project *models.Project) error

	// Dumps renders reqs and project.
	Dumps(reqs []models.Requirement, project *models.Project) (string, error)

	// Lock reports whether the format stores a locked (pinned) set.
	Lock() bool
}

// LoadFile implements [Converter.Load] on top of a Loads function. The file
// is read whole and its handle released before parsing starts; a ParseError
// or UnsupportedConstructError without a path gets path filled in.
func LoadFile(path string, loads func(string) (*models.Project, error)) (*models.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := loads(string(data))
	if err != nil {
		return nil, withPath(err, path)
	}
	return p, nil
}

// DumpFile implements [Converter.Dump] on top of a Dumps function. Content
// is written to a temporary file next to path and renamed into place, so a
// failed dump never leaves a truncated file behind.
func DumpFile(path string, reqs []models.Requirement, project *models.Project, dumps func([]models.Requirement, *models.Project) (string, error)) error {
	content, err := dumps(reqs, project)
	if err != nil {
		return withPath(err, path)
	}
	return WriteFile(path, []byte(content))
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("converters: replace %s: %w", path, err)
	}
	return nil
}

// Prepare returns the sorted copy of reqs and a non-nil project every Dumps
// implementation starts from.
func Prepare(reqs []models.Requirement, project *models.Project) ([]models.Requirement, *models.Project) {
	if project == nil {
		project = &models.Project{}
	} else {
		project = project.Clone()
	}
	project.Normalize()
	return models.Sorted(reqs), project
}

// Finish validates a freshly parsed project and normalizes its set-valued
// fields. Every Loads implementation returns through here.
func Finish(p *models.Project) (*models.Project, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
