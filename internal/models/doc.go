// Package models defines domain entities for the mixdisc site builder.
//
// The package contains three categories of types:
//
// 1. Submission types, parsed from contributor YAML files
//   - [Submission] : One contributor playlist, either manual or remote
//   - [TrackEntry] : A single "Artist - Title" line from a manual submission
//   - [RemotePlaylist] : Normalized identity of a remote playlist on a music service
//
// 2. Service result types, produced by resolving a submission against a music service
//   - [Track] : Song metadata with duration and service link
//   - [ServicePlaylist] : The service's rendering of a submission with total duration
//
// 3. Validation types, reported to contributors and to the renderer
//   - [ValidationResult] : Per-file outcome of the validate workflow
//   - [ValidationWarning] : Frozen-playlist banner data carried into rendering
package models
