// Package artifact stores rendered bit planes where the HTTP server can
// serve them.
//
// Every analysis run owns one directory, named after its run ID, under the
// store root. The directory is removed when the run fails or is cancelled,
// and a janitor sweeps directories older than the retention period so the
// cache cannot grow without bound.
package artifact
