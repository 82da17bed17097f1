// Package http contains the chi HTTP handlers for the valuation API.
//
// Handlers decode and validate wire requests, delegate to the service layer,
// and translate service errors into RFC 7807 problem responses through the
// shared error handler. All routes are mounted under /api by the application
// router.
package http
