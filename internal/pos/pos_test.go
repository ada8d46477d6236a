package pos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tukey-analytics/tukey/internal/types"
)

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		filename string
		want     FileType
	}{
		{filename: "sales.json", want: FileTypeJSON},
		{filename: "SALES.JSON", want: FileTypeJSON},
		{filename: "sales.csv", want: FileTypeCSV},
		{filename: "sales.json.csv", want: FileTypeCSV},
		{filename: "export", want: FileTypeCSV},
		{filename: "notes.txt", want: FileTypeCSV},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := DetectFileType(tt.filename); got != tt.want {
				t.Errorf("DetectFileType(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	admin := types.Session{Email: "admin@example.org", Role: types.RoleAdmin}
	user := types.Session{Email: "user@example.org", Role: types.RoleUser}

	tests := []struct {
		name    string
		sess    types.Session
		size    int64
		wantErr error
	}{
		{name: "admin small file", sess: admin, size: 1024},
		{name: "admin at limit", sess: admin, size: MaxFileSize},
		{name: "admin over limit", sess: admin, size: MaxFileSize + 1, wantErr: ErrTooLarge},
		{name: "non admin", sess: user, size: 10, wantErr: ErrNotAdmin},
		{name: "non admin over limit reports permission first", sess: user, size: MaxFileSize * 2, wantErr: ErrNotAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Check(tt.sess, "sales.csv", tt.size)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, File{Name: "sales.csv", Size: tt.size, Type: FileTypeCSV}, f)
		})
	}
}

func TestRejectedErrorMessages(t *testing.T) {
	assert.Equal(t, "Only admins can upload files.", ErrNotAdmin.Error())
	assert.Equal(t, "File size must be less than 50MB.", ErrTooLarge.Error())
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "1.5 KiB", File{Size: 1536}.HumanSize())
	assert.Equal(t, "0 B", File{}.HumanSize())
	assert.Equal(t, "File uploaded successfully. 1,200 rows and 2 columns processed.",
		Summary(&types.UploadResult{Rows: 1200, Columns: []string{"a", "b"}}))
	assert.Equal(t, "File uploaded successfully.", Summary(nil))
}
