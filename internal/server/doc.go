// Package server implements the HTTP API for the speech translation
// service: the /translate upload endpoint plus health, monitoring, and
// management endpoints.
package server
