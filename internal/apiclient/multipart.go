package apiclient

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
)

// Field is one plain form value of a multipart upload.
type Field struct {
	Name  string
	Value string
}

// Multipart is a file upload plus ordered form fields.
type Multipart struct {
	FileField   string
	FileName    string
	ContentType string
	File        []byte
	Fields      []Field
}

func (m Multipart) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if m.FileField != "" {
		contentType := m.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+escapeQuotes(m.FileField)+`"; filename="`+escapeQuotes(m.FileName)+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(m.File); err != nil {
			return nil, "", err
		}
	}

	for _, f := range m.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func escapeQuotes(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
