// Package links models where a package's source code comes from.
//
// A [Link] is a closed sum type with four variants:
//
//   - [Registry]: the package index (the implicit default; a nil Link means the same)
//   - [VCS]: a version-control reference such as git+https://host/owner/repo@tag
//   - [FileOrDirectory]: a local archive or source tree
//   - [URL]: a direct archive URL, optionally carrying a content hash
//
// Converters build links while parsing project files with [Parse]; the
// resolver compares them with [Equal] to decide whether two requirements on
// the same package can be merged. Two different non-registry links for the
// same package are a conflict.
package links
