// Package shared holds code used across packages that belongs to no single layer.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//   - CaptureHandler, an slog.Handler that records log output for assertions
//   - Action log fixtures: header, row builders and a sample scenario covering
//     every plot point kind
//   - WriteDataSource, which lays out a data source on an afero filesystem
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    fs := afero.NewMemMapFs()
//	    testutil.WriteDataSource(t, fs, "data", "run-1", testutil.SampleActionLog())
//	    ...
//	    testutil.AssertNoErrors(t, logs)
//	}
package shared
