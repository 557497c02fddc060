// Package source provides resolver.Source implementations: where the
// resolver learns which releases exist and what they depend on.
//
//   - [Memory]: an in-process index, for tests and offline use
//   - [Local]: path links (loads the target's project file) and VCS/URL
//     links (version from the #egg= fragment, nothing is cloned)
//   - [Multi]: dispatches by link kind
//   - [Cached]: memoizes another source in a bounded LRU
//   - pypi.Source in the subpackage: the PyPI JSON API
package source

import (
	"errors"

	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/models"
)

var (
	// ErrNotFound is returned when a source has no such package.
	ErrNotFound = errors.New("package not found")

	// ErrUnsupportedLink is returned when a source cannot serve a link kind.
	ErrUnsupportedLink = errors.New("unsupported link")
)

// MarkOptional flags requirements guarded by an `extra == "..."` marker as
// optional, in place, and returns reqs.
func MarkOptional(reqs []models.Requirement) []models.Requirement {
	for i := range reqs {
		if extra, _ := converters.SplitExtra(reqs[i].Markers); extra != "" {
			reqs[i].Optional = true
		}
	}
	return reqs
}
