// Package containers manages Docker containers for integration tests using
// testcontainers-go. Tests depending on it carry the "integration" build tag:
//
//	go test -tags=integration ./...
//
// Containers are started once per package from TestMain and torn down after
// the run.
package containers
