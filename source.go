package snapfit

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// SourceProvider hands over the raw file selected by the user.
type SourceProvider interface {
	Source(ctx context.Context) (File, error)
}

// FileSource reads a file from disk. The content type is taken from the
// file extension, falling back to content sniffing.
type FileSource struct {
	Path string
}

// Source implements SourceProvider.
func (s FileSource) Source(ctx context.Context) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return File{}, fmt.Errorf("snapfit: read %q: %w", s.Path, err)
	}
	return File{
		Name:     filepath.Base(s.Path),
		MIMEType: DetectMIMEType(s.Path, data),
		Data:     data,
	}, nil
}

// StaticSource serves an in-memory File.
type StaticSource File

// Source implements SourceProvider.
func (s StaticSource) Source(ctx context.Context) (File, error) {
	return File(s), ctx.Err()
}

// DetectMIMEType returns the content type for a file name, sniffing data
// when the extension is unknown. Parameters such as charset are dropped.
func DetectMIMEType(name string, data []byte) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if t == "" {
		t = http.DetectContentType(data)
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}
