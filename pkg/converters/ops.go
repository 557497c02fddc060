package converters

import (
	"context"
	"time"

	"github.com/ko3luhbka/dephell/pkg/models"
	"github.com/ko3luhbka/dephell/pkg/observability"
)

// Load runs c.Load and reports it to the converter hooks.
func Load(ctx context.Context, c Converter, path string) (*models.Project, error) {
	start := time.Now()
	p, err := c.Load(path)
	observability.Converter().OnLoad(ctx, c.Name(), depCount(p), time.Since(start), err)
	return p, err
}

// Loads runs c.Loads and reports it to the converter hooks.
func Loads(ctx context.Context, c Converter, content string) (*models.Project, error) {
	start := time.Now()
	p, err := c.Loads(content)
	observability.Converter().OnLoad(ctx, c.Name(), depCount(p), time.Since(start), err)
	return p, err
}

// Dump runs c.Dump and reports it to the converter hooks.
func Dump(ctx context.Context, c Converter, path string, reqs []models.Requirement, project *models.Project) error {
	start := time.Now()
	err := c.Dump(path, reqs, project)
	observability.Converter().OnDump(ctx, c.Name(), len(reqs), time.Since(start), err)
	return err
}

// Dumps runs c.Dumps and reports it to the converter hooks.
func Dumps(ctx context.Context, c Converter, reqs []models.Requirement, project *models.Project) (string, error) {
	start := time.Now()
	out, err := c.Dumps(reqs, project)
	observability.Converter().OnDump(ctx, c.Name(), len(reqs), time.Since(start), err)
	return out, err
}

// Convert re-emits content written for from in the to format, carrying the
// declared dependencies unresolved.
func Convert(ctx context.Context, from, to Converter, content string) (string, error) {
	p, err := Loads(ctx, from, content)
	if err != nil {
		return "", err
	}
	return Dumps(ctx, to, p.Dependencies, p)
}

func depCount(p *models.Project) int {
	if p == nil {
		return 0
	}
	return len(p.Dependencies)
}
