package telegram

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path/filepath"

	"github.com/google/uuid"
)

// attachScheme prefixes the token of an uploaded file when a parameter refers to it.
const attachScheme = "attach://"

// InputFile refers to a file the Bot API should use: an id of a file already on
// Telegram servers, an HTTP(S) URL Telegram downloads itself, or a local stream
// uploaded with the request. Exactly one of the three is set; build values with
// FileID, FileURL or FileUpload.
type InputFile struct {
	fileID string
	url    *url.URL
	upload *upload
}

// upload is the local-stream variant. The token is fixed at construction and
// names the multipart part carrying the bytes.
type upload struct {
	token    uuid.UUID
	name     string
	mimeType string
	reader   io.Reader
}

// FileID refers to a file previously uploaded to Telegram.
func FileID(id string) *InputFile {
	return &InputFile{fileID: id}
}

// FileURL lets Telegram fetch the file from u.
func FileURL(u *url.URL) *InputFile {
	return &InputFile{url: u}
}

// FileURLString parses s and lets Telegram fetch the file from it.
func FileURLString(s string) (*InputFile, error) {
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("%w: invalid file url %q", ErrInvalidArgument, s)
	}
	return FileURL(u), nil
}

// FileReader uploads the contents of r under the given file name. The content
// type is derived from the file name's extension.
func FileReader(name string, r io.Reader) *InputFile {
	return FileUpload(name, "", r)
}

// FileUpload uploads the contents of r under the given name and mime type.
func FileUpload(name, mimeType string, r io.Reader) *InputFile {
	return &InputFile{upload: &upload{
		token:    uuid.New(),
		name:     name,
		mimeType: mimeType,
		reader:   r,
	}}
}

// IsUpload reports whether f carries a local stream ready to be sent.
func (f *InputFile) IsUpload() bool {
	return f != nil && f.upload != nil && f.upload.reader != nil && f.upload.name != ""
}

// Token returns the attachment token of an upload, or "" for other variants.
func (f *InputFile) Token() string {
	if f == nil || f.upload == nil {
		return ""
	}
	return f.upload.token.String()
}

// Name returns the upload file name, or "" for other variants.
func (f *InputFile) Name() string {
	if f == nil || f.upload == nil {
		return ""
	}
	return f.upload.name
}

// ContentType returns the declared mime type of an upload, falling back to a
// lookup by file extension and then to application/octet-stream.
func (f *InputFile) ContentType() string {
	if f == nil || f.upload == nil {
		return ""
	}
	if f.upload.mimeType != "" {
		return f.upload.mimeType
	}
	if t := mime.TypeByExtension(filepath.Ext(f.upload.name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Validate fails with ErrConfiguration unless exactly one variant is set.
func (f *InputFile) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil input file", ErrConfiguration)
	}
	set := 0
	if f.fileID != "" {
		set++
	}
	if f.url != nil {
		set++
	}
	if f.IsUpload() {
		set++
	} else if f.upload != nil {
		return fmt.Errorf("%w: input file upload needs a name and a reader", ErrConfiguration)
	}
	switch set {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("%w: input file has no id, url or upload", ErrConfiguration)
	default:
		return fmt.Errorf("%w: input file has %d sources set, want exactly one", ErrConfiguration, set)
	}
}

// Ref returns the text the Bot API expects in the referencing parameter: the
// file id, the URL, or "attach://<token>" for uploads.
func (f *InputFile) Ref() (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	switch {
	case f.fileID != "":
		return f.fileID, nil
	case f.url != nil:
		return f.url.String(), nil
	default:
		return attachScheme + f.upload.token.String(), nil
	}
}

// MarshalJSON encodes f as its reference string, so structures that embed an
// InputFile (input media, stickers) point at the right multipart part.
func (f *InputFile) MarshalJSON() ([]byte, error) {
	ref, err := f.Ref()
	if err != nil {
		return nil, err
	}
	return json.Marshal(ref)
}
