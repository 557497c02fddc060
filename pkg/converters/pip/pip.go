// Package pip converts pip requirements files.
//
// Two formats share the grammar: requirements.txt (declared ranges) and
// requirements.lock (every line pinned with "==" and usually carrying
// --hash options). Includes (-r, -c) cannot be followed from a single
// content string and are reported as unsupported.
package pip

import (
	"bufio"
	"regexp"
	"slices"
	"strings"

	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
)

// Converter handles requirements files. Locked selects the lock flavor.
type Converter struct {
	Locked bool
}

func (c Converter) Name() string {
	if c.Locked {
		return "piplock"
	}
	return "pip"
}

func (c Converter) Supports(name string) bool {
	if c.Locked {
		return name == "requirements.lock" || strings.HasSuffix(name, ".txt.lock")
	}
	return name == "requirements.txt" ||
		(strings.HasPrefix(name, "requirements") && strings.HasSuffix(name, ".txt"))
}

func (c Converter) Lock() bool { return c.Locked }

func (c Converter) Load(path string) (*models.Project, error) {
	return converters.LoadFile(path, c.Loads)
}

func (c Converter) Dump(path string, reqs []models.Requirement, project *models.Project) error {
	return converters.DumpFile(path, reqs, project, c.Dumps)
}

var (
	commentRE = regexp.MustCompile(`(^|\s)#.*$`)
	hashRE    = regexp.MustCompile(`\s*--hash[=\s]\s*(\S+)`)
)

// ignoredOptions configure the installer, not the dependency set.
var ignoredOptions = map[string]bool{
	"-i": true, "--index-url": true, "--extra-index-url": true,
	"-f": true, "--find-links": true, "--trusted-host": true,
	"--pre": true, "--no-index": true, "--prefer-binary": true,
	"--only-binary": true, "--no-binary": true, "--require-hashes": true,
}

// Loads parses a requirements file.
func (c Converter) Loads(content string) (*models.Project, error) {
	lines, err := logicalLines(content)
	if err != nil {
		return nil, err
	}

	var reqs []models.Requirement
	for _, ln := range lines {
		text := ln.text
		var hashes []string
		for _, m := range hashRE.FindAllStringSubmatch(text, -1) {
			hashes = append(hashes, m[1])
		}
		text = strings.TrimSpace(hashRE.ReplaceAllString(text, ""))
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "-") && !isEditable(text) {
			opt, _, _ := strings.Cut(strings.Fields(text)[0], "=")
			switch {
			case ignoredOptions[opt]:
				continue
			case opt == "-r" || opt == "--requirement" || opt == "-c" || opt == "--constraint":
				return nil, converters.Unsupported(ln.line, "include %q", text)
			default:
				return nil, converters.Unsupported(ln.line, "option %q", opt)
			}
		}

		req, err := models.ParseRequirement(text)
		if err != nil {
			return nil, converters.Errorf(ln.line, 0, "%v", err)
		}
		if extra, _ := converters.SplitExtra(req.Markers); extra != "" {
			req.Optional = true
		}
		if len(hashes) > 0 {
			slices.Sort(hashes)
			req.Hashes = slices.Compact(hashes)
		}
		if v, ok := req.Constraint.Pinned(); ok && c.Locked {
			req.Version = v
		}
		reqs = append(reqs, req)
	}

	p := &models.Project{}
	p.SetDependencies(reqs)
	return converters.Finish(p)
}

func isEditable(text string) bool {
	return strings.HasPrefix(text, "-e ") || strings.HasPrefix(text, "--editable")
}

type line struct {
	text string
	line int
}

// logicalLines strips comments and joins backslash continuations. Each
// result carries the number of the physical line it starts on.
func logicalLines(content string) ([]line, error) {
	var (
		out   []line
		buf   strings.Builder
		start int
		n     int
	)
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		n++
		text := commentRE.ReplaceAllString(scanner.Text(), "")
		if buf.Len() == 0 {
			start = n
		}
		if trimmed := strings.TrimRight(text, " \t"); strings.HasSuffix(trimmed, `\`) {
			buf.WriteString(strings.TrimSuffix(trimmed, `\`))
			buf.WriteByte(' ')
			continue
		}
		buf.WriteString(text)
		if s := strings.TrimSpace(buf.String()); s != "" {
			out = append(out, line{text: s, line: start})
		}
		buf.Reset()
	}
	if err := scanner.Err(); err != nil {
		return nil, converters.Errorf(n, 0, "%v", err)
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		out = append(out, line{text: s, line: start})
	}
	return out, nil
}

// Dumps renders one requirement per line. Locked requirements render
// "==version" followed by their hashes on continuation lines.
func (c Converter) Dumps(reqs []models.Requirement, project *models.Project) (string, error) {
	reqs, _ = converters.Prepare(reqs, project)

	var b strings.Builder
	for _, r := range reqs {
		text, err := render(r)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		if c.Locked && len(r.Hashes) > 0 {
			hashes := slices.Clone(r.Hashes)
			slices.Sort(hashes)
			for _, h := range slices.Compact(hashes) {
				b.WriteString(" \\\n    --hash=")
				b.WriteString(h)
			}
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func render(r models.Requirement) (string, error) {
	if !r.Editable || links.IsRegistry(r.Link) {
		return r.String(), nil
	}
	l, err := converters.EggLink(r)
	if err != nil {
		return "", err
	}
	if r.Markers != "" {
		l += " ; " + r.Markers
	}
	return "-e " + l, nil
}
