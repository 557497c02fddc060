package converters

import (
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
)

// EggLink renders r's link with an #egg= fragment naming r, the form pip
// and setuptools accept for dependency links and editable installs.
func EggLink(r models.Requirement) (string, error) {
	switch l := r.Link.(type) {
	case links.VCS:
		if l.Name == "" {
			l.Name = r.Name
		}
		return l.String(), nil
	case links.URL:
		if l.Name == "" {
			l.Name = r.Name
		}
		return l.String(), nil
	case links.FileOrDirectory:
		return l.Path + "#egg=" + r.Name, nil
	}
	return "", Unsupported(0, "link %T for %s", r.Link, r.Name)
}
