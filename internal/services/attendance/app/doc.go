// Package server wires the attendance HTTP API, its storage and the gRPC
// health endpoint into one process lifecycle.
package server
