package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shapeshift3d/internal/models"
	"shapeshift3d/internal/storage"
)

var defaultExtensions = []string{"png", "jpg", "jpeg", "gif", "webp"}

func newIntake(t *testing.T) (*Intake, *ModelCatalog, string) {
	t.Helper()
	dir := t.TempDir()
	catalog := NewModelCatalog(storage.NewMemoryStore())
	in := NewIntake(dir, defaultExtensions, catalog)
	in.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	return in, catalog, dir
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestIntake_AllowedFile(t *testing.T) {
	in, _, _ := newIntake(t)

	tests := []struct {
		name string
		want bool
	}{
		{"photo.png", true},
		{"photo.PNG", true},
		{"photo.JpEg", true},
		{"archive.tar.webp", true},
		{"photo.EXE", false},
		{"photo", false},
		{"photo.", false},
		{"png", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, in.AllowedFile(tc.name))
		})
	}
}

func TestIntake_SaveUploadAccepted(t *testing.T) {
	ctx := context.Background()
	in, catalog, dir := newIntake(t)

	id, err := in.SaveUpload(ctx, "user-a", "My Model", "photo.PNG", strings.NewReader("fake-png"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	files := listDir(t, dir)
	require.Equal(t, []string{"20240506_070809_photo.PNG"}, files)
	data, err := os.ReadFile(filepath.Join(dir, files[0]))
	require.NoError(t, err)
	assert.Equal(t, "fake-png", string(data))

	list, err := catalog.ListByUser(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	m := list[0]
	assert.Equal(t, "My Model", m.Name)
	assert.Equal(t, models.ModelTypeUpload, m.Type)
	assert.Equal(t, files[0], m.OriginalFile)
	assert.Regexp(t, `^model_[0-9a-f]{8}\.obj$`, m.ModelFile)
	assert.Regexp(t, `^thumb_[0-9a-f]{8}\.jpg$`, m.Thumbnail)
}

func TestIntake_SaveUploadRejectedExtension(t *testing.T) {
	ctx := context.Background()
	in, catalog, dir := newIntake(t)

	_, err := in.SaveUpload(ctx, "user-a", "", "photo.EXE", strings.NewReader("MZ"))
	assert.ErrorIs(t, err, ErrFileType)

	assert.Empty(t, listDir(t, dir))
	list, err := catalog.ListByUser(ctx, "user-a")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestIntake_SaveUploadNoFile(t *testing.T) {
	in, _, _ := newIntake(t)

	_, err := in.SaveUpload(context.Background(), "user-a", "", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestIntake_SaveUploadSanitizesPath(t *testing.T) {
	in, _, dir := newIntake(t)

	_, err := in.SaveUpload(context.Background(), "user-a", "", "../../etc/evil name.png", strings.NewReader("x"))
	require.NoError(t, err)

	assert.Equal(t, []string{"20240506_070809_etc_evil_name.png"}, listDir(t, dir))
}

func TestIntake_SaveUploadAvoidsCollision(t *testing.T) {
	ctx := context.Background()
	in, _, dir := newIntake(t)

	_, err := in.SaveUpload(ctx, "user-a", "", "photo.png", strings.NewReader("one"))
	require.NoError(t, err)
	_, err = in.SaveUpload(ctx, "user-a", "", "photo.png", strings.NewReader("two"))
	require.NoError(t, err)

	files := listDir(t, dir)
	require.Len(t, files, 2)
	for _, f := range files {
		assert.True(t, strings.HasPrefix(f, "20240506_070809_"), f)
		assert.True(t, strings.HasSuffix(f, "photo.png"), f)
	}
}

func TestIntake_SaveDrawing(t *testing.T) {
	ctx := context.Background()
	in, catalog, dir := newIntake(t)

	id, err := in.SaveDrawing(ctx, "user-a", "", "data:image/png;base64,AAAA")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	files := listDir(t, dir)
	require.Equal(t, []string{"20240506_070809_drawing.png"}, files)
	data, err := os.ReadFile(filepath.Join(dir, files[0]))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0}, data)

	list, err := catalog.ListByUser(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.ModelTypeDraw, list[0].Type)
	assert.Equal(t, DefaultDrawingName, list[0].Name)
}

func TestIntake_SaveDrawingFailures(t *testing.T) {
	tests := []struct {
		name   string
		canvas string
		want   error
	}{
		{"empty", "", ErrNoCanvasData},
		{"no comma", "data:image/png;base64AAAA", ErrMalformedCanvas},
		{"bad base64", "data:image/png;base64,@@@", ErrMalformedCanvas},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			in, catalog, dir := newIntake(t)

			_, err := in.SaveDrawing(ctx, "user-a", "x", tc.canvas)
			assert.ErrorIs(t, err, tc.want)

			assert.Empty(t, listDir(t, dir))
			list, err := catalog.ListByUser(ctx, "user-a")
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"photo.PNG":          "photo.PNG",
		"my photo.jpg":       "my_photo.jpg",
		"../../etc/x.png":    "etc_x.png",
		`C:\Users\me\a.gif`:  "C_Users_me_a.gif",
		"фото.png":           "upload.png",
		".hidden.webp":       "hidden.webp",
		"noext":              "noext",
		"weird<>|name?.jpeg": "weirdname.jpeg",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}
