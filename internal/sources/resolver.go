package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/afero"

	apierrors "simdash/internal/errors"
	"simdash/internal/files"
)

// DriveScheme prefixes references to Google Drive file ids.
const DriveScheme = "gdrive://"

// DataSource describes one entry of the local catalogue.
type DataSource struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	File string      `json:"file,omitempty"`
	Date *SourceDate `json:"date,omitempty"`
}

// SourceDate is the session date encoded in a folder name.
type SourceDate struct {
	Epoch      int64  `json:"epoch"`
	DateString string `json:"dateString"`
}

// Resolver opens action logs by reference. A reference is an http(s) URL,
// a gdrive://<file-id> reference or a file path; catalogue entries are
// opened by id.
type Resolver struct {
	fs          afero.Fs
	discovery   *files.Discovery
	client      *http.Client
	drive       DriveFetcher
	allowRemote bool
	logFileName string
	logger      *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFs replaces the filesystem used for paths and the catalogue.
func WithFs(fs afero.Fs) Option {
	return func(r *Resolver) { r.fs = fs }
}

// WithHTTPClient sets the client used for http(s) references.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithDrive enables gdrive:// references.
func WithDrive(d DriveFetcher) Option {
	return func(r *Resolver) { r.drive = d }
}

// WithAllowRemote toggles http(s) and gdrive:// references.
func WithAllowRemote(allow bool) Option {
	return func(r *Resolver) { r.allowRemote = allow }
}

// WithActionLogName sets the preferred file name inside catalogue folders.
func WithActionLogName(name string) Option {
	return func(r *Resolver) { r.logFileName = name }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver whose catalogue is rooted at dataDir.
func NewResolver(dataDir string, opts ...Option) *Resolver {
	r := &Resolver{
		fs:          afero.NewOsFs(),
		client:      &http.Client{Timeout: 30 * time.Second},
		allowRemote: true,
		logFileName: "actions.csv",
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.discovery = files.NewDiscovery(r.fs, dataDir)
	r.logger = r.logger.With(slog.String("component", "sources"))
	return r
}

// IsRemote reports whether ref is fetched over the network.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, DriveScheme)
}

// Open returns a reader over the referenced action log.
func (r *Resolver) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if IsRemote(ref) && !r.allowRemote {
		return nil, apierrors.NewPermissionError("remote data sources are disabled").
			WithContext("source", ref)
	}

	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return r.openURL(ctx, ref)
	case strings.HasPrefix(ref, DriveScheme):
		return r.openDrive(ctx, strings.TrimPrefix(ref, DriveScheme))
	default:
		return r.openFile(ref)
	}
}

// OpenDataSource opens the action log of catalogue entry id.
func (r *Resolver) OpenDataSource(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := files.ValidateID(id); err != nil {
		return nil, apierrors.NewAppValidationError(err.Error())
	}

	folder, err := r.discovery.Folder(id)
	if err != nil {
		return nil, r.fileError("data source "+id, err)
	}

	info, err := r.discovery.FindActionLog(folder, r.logFileName)
	if err != nil {
		return nil, r.fileError("action log for data source "+id, err)
	}

	r.logger.DebugContext(ctx, "opening data source",
		slog.String("id", id),
		slog.String("path", info.Path))

	return r.openFile(info.Path)
}

// List returns the catalogue entries that hold an action log, oldest first.
func (r *Resolver) List(ctx context.Context) ([]DataSource, error) {
	folders, err := r.discovery.ListFolders()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []DataSource{}, nil
		}
		return nil, apierrors.NewStorageError("failed to list data sources", err)
	}

	list := make([]DataSource, 0, len(folders))
	for _, folder := range folders {
		info, err := r.discovery.FindActionLog(folder, r.logFileName)
		if err != nil {
			r.logger.DebugContext(ctx, "skipping folder without action log",
				slog.String("id", folder.ID))
			continue
		}

		entry := DataSource{ID: folder.ID, Name: folder.ID, File: info.Name}
		if !folder.Date.IsZero() {
			entry.Name = folder.Date.Format("January 2, 2006")
			entry.Date = &SourceDate{
				Epoch:      folder.Date.Unix(),
				DateString: folder.Date.Format("01/02/2006"),
			}
		}
		list = append(list, entry)
	}

	return list, nil
}

func (r *Resolver) openFile(path string) (io.ReadCloser, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, r.fileError("file "+path, err)
	}
	return f, nil
}

func (r *Resolver) fileError(resource string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apierrors.NewNotFoundError(resource)
	}
	return apierrors.NewStorageError("failed to open "+resource, err)
}

func (r *Resolver) openURL(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apierrors.NewAppValidationError(fmt.Sprintf("invalid url %q: %v", url, err))
	}
	req.Header.Set("Accept", "text/csv, text/plain, */*")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, apierrors.NewNetworkError("failed to fetch "+url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, apierrors.NewNetworkError(
			fmt.Sprintf("fetch %s returned status %d", url, resp.StatusCode), nil).
			WithContext("upstream_status", resp.StatusCode)
	}

	r.logger.DebugContext(ctx, "fetched remote action log",
		slog.String("url", url),
		slog.Duration("latency", time.Since(start)))

	return resp.Body, nil
}

func (r *Resolver) openDrive(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if r.drive == nil {
		return nil, apierrors.NewConfigError("google drive sources are not configured", nil)
	}
	if fileID == "" {
		return nil, apierrors.NewAppValidationError("missing google drive file id")
	}
	return r.drive.Download(ctx, fileID)
}
