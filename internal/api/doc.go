// Package api handles incoming HTTP requests, request validation and
// response formatting for the learning endpoints. It translates HTTP
// requests into learning service calls and maps service errors to status
// codes without exposing internal details.
package api
