// Package io provides JSON import and export for resolved dependency graphs.
//
// # JSON Format
//
// The format has two required top-level arrays and optional graph metadata:
//
//	{
//	  "meta": {"root": "app"},
//	  "nodes": [
//	    {"id": "app", "meta": {"state": "root"}},
//	    {"id": "requests", "row": 1, "meta": {"state": "resolved", "version": "2.31.0"}},
//	    {"id": "idna", "row": 2, "meta": {"state": "resolved", "version": "3.6"}}
//	  ],
//	  "edges": [
//	    {"from": "app", "to": "requests"},
//	    {"from": "requests", "to": "idna"}
//	  ]
//	}
//
// # Node Fields
//
// Required:
//   - id: Unique string identifier (the package name)
//
// Optional:
//   - row: Resolution depth (0 for the project root)
//   - meta: Freeform object; the resolver writes state, version,
//     constraint, link, reason and optional
//
// # Import and Export
//
// [WriteJSON] and [ExportJSON] write a graph; [ReadJSON] and [ImportJSON]
// read one back. Declared dependency cycles are legal in this format, so
// import rejects duplicate IDs and dangling edges but not cycles; call
// dag.DAG.Validate when acyclicity matters.
//
// Output is deterministic: nodes and edges come out sorted, so exported
// files diff cleanly between runs.
package io
