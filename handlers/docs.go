/*
Package handlers implements the HTTP API of the admin panel.

Reads are public. Writes require an admin: provide the session token returned
by the login endpoint as a bearer token in the `Authorization` header, or let
the browser send the session cookie the login endpoint set.

All responses are JSON. Errors have the form `{"error": "..."}`. Endpoints
which specify a response of `None` return `{"success": true}`.
*/
package handlers
