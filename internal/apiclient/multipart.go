package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
)

// Multipart is a pre-encoded form body. The client sends its own
// boundary-bearing content type instead of application/json.
type Multipart struct {
	body        []byte
	contentType string
}

type File struct {
	Field       string
	Name        string
	ContentType string
	Content     io.Reader
}

func NewMultipart(fields map[string]string, files ...File) (*Multipart, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}

	for _, f := range files {
		var part io.Writer
		var err error
		if f.ContentType == "" {
			part, err = w.CreateFormFile(f.Field, f.Name)
		} else {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
			h.Set("Content-Type", f.ContentType)
			part, err = w.CreatePart(h)
		}
		if err != nil {
			return nil, fmt.Errorf("create part %s: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("copy part %s: %w", f.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	return &Multipart{body: buf.Bytes(), contentType: w.FormDataContentType()}, nil
}

func (m *Multipart) ContentType() string {
	return m.contentType
}
