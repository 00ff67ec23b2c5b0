// Package http implements the HTTP and websocket handlers of the simulation
// dashboard API. Handlers stay thin: they validate the request, call the
// actions or health service, and format the response. Every failure is
// rendered as RFC 7807 problem details by the shared ErrorHandler.
//
// # Routes
//
//	GET /api/data-sources                          catalogue listing
//	GET /api/data-sources/{id}/actions             JSON array of plot points
//	GET /api/data-sources/{id}/actions/raw         same array, flushed per point
//	GET /api/data-sources/{id}/actions/summary     point counts per kind
//	GET /api/data-sources/{id}/actions/export      CSV or XLSX download (?format=)
//	GET /ws/data-sources/{id}/actions              one websocket frame per point
//	GET /api/health, /api/health/ready, /api/health/live, /api/version
//	GET /metrics                                   Prometheus exposition
//
// Every data-source route accepts ?max_rows=N (0..limit) overriding the
// lookback window used to correlate error markers with actions.
//
// # Error Mapping
//
//	unknown source id          404 /errors/source/not-found
//	invalid parameters         400 /errors/validation
//	header mismatch            422 /errors/action-log/invalid
//	remote source unreachable  502 /errors/upstream
//
// Streaming routes can only report failures that happen before the first
// byte; later failures are logged and truncate the response.
package http
