package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	apierrors "simdash/internal/errors"
)

// DriveFetcher downloads file contents from Google Drive.
type DriveFetcher interface {
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Drive is a DriveFetcher backed by the Drive v3 API.
type Drive struct {
	service *drive.Service
}

// NewDrive creates a read-only Drive client from a service account
// credentials file.
func NewDrive(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*Drive, error) {
	base := []option.ClientOption{
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveReadonlyScope),
	}
	return NewDriveWithOptions(ctx, append(base, opts...)...)
}

// NewDriveWithOptions creates a Drive client from raw client options.
func NewDriveWithOptions(ctx context.Context, opts ...option.ClientOption) (*Drive, error) {
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, apierrors.NewConfigError("failed to create drive service", err)
	}
	return &Drive{service: service}, nil
}

// Download implements DriveFetcher.
func (d *Drive) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := d.service.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, apierrors.NewNotFoundError("drive file " + fileID)
		}
		return nil, apierrors.NewNetworkError(fmt.Sprintf("failed to download drive file %s", fileID), err)
	}
	return resp.Body, nil
}
