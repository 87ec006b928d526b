// package repositories provides the persistence layer for memoized track
// lookups.
//
// [TrackCacheRepository] backs the manual submission path: every resolved
// track, including tracks the service could not find, is stored so that
// subsequent rebuilds touch the service only for entries never seen before.
package repositories
