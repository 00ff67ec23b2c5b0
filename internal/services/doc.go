// Package services implements the business logic between the transport layer
// and the classifier.
//
// ActionsService resolves a data source, runs the action log through the
// classification pipeline and hands every plot point to a caller supplied
// handler, recording a span and stream metrics along the way:
//
//	summary, err := svc.ProcessDataSource(ctx, "020325", services.ProcessOptions{},
//	    func(p domain.PlotPoint) error {
//	        return enc.Encode(p)
//	    })
//
// Malformed rows are logged and skipped; OnRowError lets callers surface them.
// A header mismatch is a parsing AppError, which the HTTP layer renders as 422.
//
// HealthService backs the liveness, readiness and version endpoints.
package services
