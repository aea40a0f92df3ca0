package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"chat-client/internal/models"
)

// Form is a multipart/form-data body.
type Form struct {
	fields [][2]string
	files  []formFile
}

type formFile struct {
	field string
	file  models.Attachment
}

func (f *Form) Field(name, value string) *Form {
	f.fields = append(f.fields, [2]string{name, value})
	return f
}

func (f *Form) File(field string, a models.Attachment) *Form {
	f.files = append(f.files, formFile{field: field, file: a})
	return f
}

func (f *Form) encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, kv := range f.fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	for _, ff := range f.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, ff.field, ff.file.Filename))
		ct := ff.file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(ff.file.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// CallMultipart sends form and decodes the envelope's data into T.
func CallMultipart[T any](ctx context.Context, g *Gateway, method, path string, form *Form) (T, error) {
	var out T
	body, contentType, err := form.encode()
	if err != nil {
		return out, fmt.Errorf("encode form: %w", err)
	}
	err = g.send(ctx, method, path, body, contentType, &out)
	return out, err
}
