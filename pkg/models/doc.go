// Package models defines the canonical dependency model shared by every
// converter and the resolver.
//
// A [Requirement] is one declared dependency edge; a [Project] is a
// package's own metadata plus its direct requirements. Converters produce
// these types when loading a project file and consume them when dumping, so
// the resolver never needs to know which file format a project came from.
//
// Package names are compared in their PEP 503 normalized form (see
// [NormalizeName]); the declared spelling is preserved for output.
package models
