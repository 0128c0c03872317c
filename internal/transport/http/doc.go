// Package http implements the HTTP handlers of the feeddiff service.
//
// Handlers stay thin: they parse and validate the request, call a service
// and render the response. Failures are rendered as RFC 7807 problem
// details through the shared errors.ErrorHandler.
//
// # Endpoints
//
//	POST   /api/diffs               multipart upload of feed1 and feed2, optional sheet and raw_values
//	GET    /api/diffs               list stored runs (limit, different, since)
//	GET    /api/diffs/{id}          run summary and full result
//	GET    /api/diffs/{id}/report   difference report, ?format=csv|xlsx|json
//	DELETE /api/diffs/{id}          forget a run
//	GET    /api/health              readiness, 503 when not ready
//	GET    /api/health/live         liveness with runtime stats
//	GET    /api/version             build information
//
// # Testing
//
// Handlers are tested with httptest against testify mocks of
// DiffServiceInterface and HealthServiceInterface.
package http
