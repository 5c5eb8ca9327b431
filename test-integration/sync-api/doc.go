// Package integration provides integration tests for the sync server.
// These tests run the complete server against fake registry and identity
// services and an in-memory Moodle, and drive it through the REST API.
package integration
