// Package control implements the request/response protocol used to drive
// a detection session from outside the page.
//
// Requests and responses travel as JSON envelopes over a WebSocket:
//
//	{"id": "<uuid>", "type": "START_DETECTION", "payload": {...}}
//
// A response carries the id of its request. Requests of an unknown type
// are answered with an envelope whose error field is set.
package control
