package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

const uploadField = "file"

type upload struct {
	data   []byte
	format string
}

// readUpload reads the multipart "file" field, bounded by the configured upload size
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit)
		}
		return nil, fmt.Errorf("missing %q upload: %w", uploadField, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("uploaded file is empty")
	}

	return &upload{
		data:   data,
		format: inferFormat(header.Header.Get("Content-Type"), header.Filename, data),
	}, nil
}

// inferFormat picks the image format from the part's content type, then the
// file extension, then the bytes themselves. Unknown inputs are treated as png.
func inferFormat(contentType, filename string, data []byte) string {
	if f := formatFromMediaType(contentType); f != "" {
		return f
	}

	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "jpg", "jpeg":
		return "jpeg"
	case "png":
		return "png"
	case "gif":
		return "gif"
	case "webp":
		return "webp"
	}

	if f := formatFromMediaType(http.DetectContentType(data)); f != "" {
		return f
	}
	return "png"
}

func formatFromMediaType(v string) string {
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return ""
	}
	switch mt {
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	}
	return ""
}
