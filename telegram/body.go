package telegram

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"
)

const contentTypeJSON = "application/json"

// requestBody is an encoded request ready to be POSTed.
type requestBody struct {
	contentType string
	body        io.ReadCloser
	multipart   bool
}

// formField is one text part of a multipart body.
type formField struct {
	name  string
	value string
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeRequest encodes req as JSON, or as multipart/form-data when at least
// one of its files is a local upload. All files are validated before any
// byte is produced.
func encodeRequest(req Request) (*requestBody, error) {
	params := req.Params()

	uploads, err := collectUploads(req, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Method(), err)
	}

	if len(uploads) == 0 {
		data, err := encodeJSON(params)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal: %w", req.Method(), err)
		}
		return &requestBody{
			contentType: contentTypeJSON,
			body:        io.NopCloser(bytes.NewReader(data)),
		}, nil
	}

	fields := make([]formField, 0, len(params))
	for _, p := range params {
		if p.Value == nil {
			continue
		}
		value, err := formValue(p.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: encode %s: %w", req.Method(), p.Name, err)
		}
		fields = append(fields, formField{name: p.Name, value: value})
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, fields, uploads))
	}()

	return &requestBody{
		contentType: mw.FormDataContentType(),
		body:        pr,
		multipart:   true,
	}, nil
}

// collectUploads validates every file referenced by req and returns the
// uploads, each once, in the order first seen.
func collectUploads(req Request, params Params) ([]*InputFile, error) {
	var files []*InputFile
	for _, p := range params {
		if f, ok := p.Value.(*InputFile); ok {
			files = append(files, f)
		}
	}
	if fr, ok := req.(FileRequest); ok {
		files = append(files, fr.Files()...)
	}

	var uploads []*InputFile
	seen := make(map[*InputFile]bool, len(files))
	for _, f := range files {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if f.IsUpload() && !seen[f] {
			seen[f] = true
			uploads = append(uploads, f)
		}
	}
	return uploads, nil
}

// encodeJSON writes params as a JSON object, keeping their order.
func encodeJSON(params Params) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, p := range params {
		if p.Value == nil {
			continue
		}
		key, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(jsonValue(p.Value))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// jsonValue maps values whose default JSON form is not what the Bot API wants.
func jsonValue(v any) any {
	if u, ok := v.(*url.URL); ok {
		return u.String()
	}
	return v
}

// formValue renders a parameter as the text of a multipart field. Strings,
// file references, URLs and text-marshalable values are sent as is; anything
// else is sent as JSON.
func formValue(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case *InputFile:
		return v.Ref()
	case *url.URL:
		return v.String(), nil
	case encoding.TextMarshaler:
		b, err := v.MarshalText()
		return string(b), err
	default:
		b, err := json.Marshal(v)
		return string(b), err
	}
}

// writeMultipart streams the form fields followed by one part per upload.
func writeMultipart(mw *multipart.Writer, fields []formField, uploads []*InputFile) error {
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("write field %s: %w", f.name, err)
		}
	}
	for _, f := range uploads {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.Token()), quoteEscaper.Replace(f.Name())))
		h.Set("Content-Type", f.ContentType())
		part, err := mw.CreatePart(h)
		if err != nil {
			return fmt.Errorf("create part %s: %w", f.Name(), err)
		}
		if _, err := io.Copy(part, f.upload.reader); err != nil {
			return fmt.Errorf("copy %s: %w", f.Name(), err)
		}
	}
	return mw.Close()
}
