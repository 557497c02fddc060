// Package pypi resolves packages against the PyPI JSON API.
//
// Two endpoints are used: /pypi/<name>/json lists every release with its
// files (version choice and artifact hashes), and /pypi/<name>/<version>/json
// carries the requires_dist metadata of one release (dependencies).
//
// Responses are cached through [httputil.Client], so any [cache.Cache]
// backend (file, Redis, MongoDB) can sit behind a [Source].
//
// Pre-releases are only chosen when no final release satisfies the
// constraint. Fully yanked releases and releases without files are never
// chosen.
package pypi
