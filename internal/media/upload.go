package media

import (
	"bytes"
	"io"
	"mime/multipart"
)

// Upload is one file received from a product form.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	open        func() (io.ReadCloser, error)
}

// Open returns a fresh reader over the file content.
func (u Upload) Open() (io.ReadCloser, error) {
	if u.open == nil {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return u.open()
}

// FromFileHeader adapts a multipart part.
func FromFileHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// FromBytes builds an in-memory upload, used by the seed tooling and tests.
func FromBytes(fileName, contentType string, data []byte) Upload {
	return Upload{
		FileName:    fileName,
		ContentType: contentType,
		Size:        int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}
