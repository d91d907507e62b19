// Package registry implements the persistent model/pipeline/resource
// registry: the store backing it, the daemon HTTP API served over a unix
// socket, and the client used by lifecycle hooks. The in-process Store and
// the remote Client implement the same Registry interface, so callers can
// run against either a live daemon or a local database file.
package registry
