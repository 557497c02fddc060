// Package constraint parses, intersects and checks version-range expressions.
//
// Expressions use PEP 440 operators (==, !=, >=, <=, >, <, ~=, ==X.*) plus the
// Poetry shorthands ^ and ~. Internally a [Constraint] is a canonical set of
// comparison clauses, which gives two properties the resolver relies on:
//
//   - [Intersect] is commutative and associative, so the order in which
//     dependents contribute constraints never changes the merged result.
//   - [Constraint.Empty] detects provably unsatisfiable intersections without
//     consulting the package index.
//
// Version comparison and satisfaction checks are delegated to
// github.com/Masterminds/semver/v3; PEP 440 pre-release, dev and post
// segments are mapped onto semver pre-release and build metadata first.
package constraint
