// Package files provides file system access over an afero.Fs.
//
// Discovery walks the data-source catalogue: one folder per recorded
// session, each holding an action log CSV. Folder names in MMDDYY form
// carry the session date.
//
//	data/
//	├── 010125/
//	│   └── actions.csv
//	└── 020325/
//	    └── export.txt
//
// Manager writes output files, such as exports, below a base directory.
package files
