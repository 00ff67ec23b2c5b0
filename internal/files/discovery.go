package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// FolderDateLayout is the MMDDYY naming used for session folders.
const FolderDateLayout = "010206"

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Folder is one session directory in the catalogue
type Folder struct {
	ID   string
	Path string
	// Date is parsed from the folder name and is zero when it does not follow
	// FolderDateLayout.
	Date time.Time
}

// Discovery lists session folders and the action logs inside them
type Discovery struct {
	fs       afero.Fs
	basePath string
}

// NewDiscovery creates a new file discovery instance rooted at basePath
func NewDiscovery(fs afero.Fs, basePath string) *Discovery {
	return &Discovery{fs: fs, basePath: basePath}
}

// BasePath returns the catalogue root
func (d *Discovery) BasePath() string {
	return d.basePath
}

// ListFolders returns the session folders under the base path, oldest date
// first. Folders without a parsable date sort first, by name.
func (d *Discovery) ListFolders() ([]Folder, error) {
	entries, err := afero.ReadDir(d.fs, d.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", d.basePath, err)
	}

	var folders []Folder
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		date, _ := time.Parse(FolderDateLayout, entry.Name())
		folders = append(folders, Folder{
			ID:   entry.Name(),
			Path: filepath.Join(d.basePath, entry.Name()),
			Date: date,
		})
	}

	sort.SliceStable(folders, func(i, j int) bool {
		if !folders[i].Date.Equal(folders[j].Date) {
			return folders[i].Date.Before(folders[j].Date)
		}
		return folders[i].ID < folders[j].ID
	})

	return folders, nil
}

// Folder resolves a folder id. The id must be a single path element.
func (d *Discovery) Folder(id string) (Folder, error) {
	if err := ValidateID(id); err != nil {
		return Folder{}, err
	}

	path := filepath.Join(d.basePath, id)
	info, err := d.fs.Stat(path)
	if err != nil {
		return Folder{}, err
	}
	if !info.IsDir() {
		return Folder{}, fmt.Errorf("%s is not a directory: %w", path, os.ErrNotExist)
	}

	date, _ := time.Parse(FolderDateLayout, id)
	return Folder{ID: id, Path: path, Date: date}, nil
}

// FindActionLog returns the action log of a folder: the preferred file name
// when present, otherwise the first .csv or .txt file in name order.
func (d *Discovery) FindActionLog(folder Folder, preferred string) (FileInfo, error) {
	if preferred != "" {
		path := filepath.Join(folder.Path, preferred)
		if info, err := d.fs.Stat(path); err == nil && !info.IsDir() {
			return toFileInfo(path, info), nil
		}
	}

	files, err := d.FindFiles(folder.Path, ".csv", ".txt")
	if err != nil {
		return FileInfo{}, err
	}
	if len(files) == 0 {
		return FileInfo{}, fmt.Errorf("no CSV file found in folder %s: %w", folder.ID, os.ErrNotExist)
	}
	return files[0], nil
}

// FindFiles lists the regular files in dir whose extension matches one of
// exts (case-insensitive), sorted by name
func (d *Discovery) FindFiles(dir string, exts ...string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := afero.ReadDir(d.fs, fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, want := range exts {
			if ext == want {
				files = append(files, toFileInfo(filepath.Join(fullPath, entry.Name()), entry))
				break
			}
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// ValidateID rejects ids that would escape the catalogue root
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." ||
		strings.ContainsAny(id, `/\`) || filepath.Base(id) != id {
		return fmt.Errorf("invalid data source id %q", id)
	}
	return nil
}

func toFileInfo(path string, info os.FileInfo) FileInfo {
	return FileInfo{
		Path:    path,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}
