// Package bootstrap assembles the components shared by cmd/server and
// cmd/worker from configuration: stores, the generative backend, the worker
// and the Redis connections behind the queue and the change feed.
package bootstrap
