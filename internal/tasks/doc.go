// Package tasks orchestrates site rebuilds with real-time progress reporting.
//
// # Core Operations
//
// The [Engine] interface defines two operations:
//
//  1. [Engine.RenderAll] : Full site rebuild
//     - Loads every submission file from the mixdisc directory
//     - Resolves remote playlists through the freeze-aware cache
//     - Resolves manual playlists through the memoized track cache
//     - Persists every cache transition before moving to the next submission
//     - Renders the static site from the processed playlists
//
//  2. [Engine.ValidateFiles] : Submission validation
//     - Reports per-file parse errors, duplicates, missing tracks,
//       and duration-limit violations
//     - Never mutates the playlist cache
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and
// optional data for advanced UI rendering. Updates use select with default to
// prevent blocking.
//
// # Implementation
//
// [RebuildEngine] implements [Engine] with dependencies on:
//   - [services.Service] : the remote music service client
//   - [TrackCacher] : memoized track lookups (repositories.TrackCacheRepository)
//   - [Renderer] : static site output (render.SiteRenderer)
package tasks
