// Package pos holds the checks applied to point-of-sale data files before they are uploaded.
package pos

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/tukey-analytics/tukey/internal/types"
)

// MaxFileSize is the largest accepted upload (50 MiB)
const MaxFileSize int64 = 50 * 1024 * 1024

type FileType string

const (
	FileTypeCSV  FileType = "csv"
	FileTypeJSON FileType = "json"
)

// DetectFileType classifies a file by extension: .json is JSON, anything else is treated as CSV
func DetectFileType(filename string) FileType {
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		return FileTypeJSON
	}
	return FileTypeCSV
}

// RejectedError reports why a file was not uploaded. Title and Message are displayed to the user.
type RejectedError struct {
	Title   string
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

var (
	ErrNotAdmin = &RejectedError{Title: "Permission denied", Message: "Only admins can upload files."}
	ErrTooLarge = &RejectedError{Title: "File too large", Message: "File size must be less than 50MB."}
)

// File describes a file queued for upload
type File struct {
	Name string
	Size int64
	Type FileType
}

// Check applies the upload rules. It is called before any network call is made.
func Check(sess types.Session, filename string, size int64) (File, error) {
	if sess.Role != types.RoleAdmin {
		return File{}, ErrNotAdmin
	}
	if size > MaxFileSize {
		return File{}, ErrTooLarge
	}
	return File{Name: filename, Size: size, Type: DetectFileType(filename)}, nil
}

// HumanSize formats the file size for display, e.g. "1.5 MiB"
func (f File) HumanSize() string {
	return humanize.IBytes(uint64(max(f.Size, 0)))
}

// Summary is the confirmation shown after a successful upload
func Summary(res *types.UploadResult) string {
	if res == nil {
		return "File uploaded successfully."
	}
	return fmt.Sprintf("File uploaded successfully. %s rows and %d columns processed.",
		humanize.Comma(int64(res.Rows)), len(res.Columns))
}
