// Package sources opens action logs.
//
// A Resolver accepts three kinds of reference:
//
//	https://host/path/log.csv   fetched over HTTP; non-2xx responses fail
//	gdrive://<file-id>          downloaded through the Drive v3 API
//	/path/to/log.csv            read from the configured afero filesystem
//
// It also serves the local catalogue, one folder per session under the data
// directory, through List and OpenDataSource.
package sources
