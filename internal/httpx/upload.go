package httpx

import (
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/media"
	"mime/multipart"
	"net/http"
)

const maxUploadMemory = 32 << 20

var errInvalidForm = apperr.Validation("invalid multipart form")

// multipartForm tracks the files it opened; close releases them together
// with the temp files of the parsed form.
type multipartForm struct {
	form   *multipart.Form
	opened []multipart.File
}

func parseMultipart(r *http.Request) (*multipartForm, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, errInvalidForm
	}
	return &multipartForm{form: r.MultipartForm}, nil
}

func (m *multipartForm) value(name string) string {
	if vs := m.form.Value[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func (m *multipartForm) files(name string) ([]media.File, error) {
	var out []media.File
	for _, fh := range m.form.File[name] {
		f, err := fh.Open()
		if err != nil {
			return nil, errInvalidForm
		}
		m.opened = append(m.opened, f)
		out = append(out, media.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return out, nil
}

func (m *multipartForm) file(name string) (*media.File, error) {
	fs, err := m.files(name)
	if err != nil || len(fs) == 0 {
		return nil, err
	}
	return &fs[0], nil
}

func (m *multipartForm) close() {
	for _, f := range m.opened {
		_ = f.Close()
	}
	_ = m.form.RemoveAll()
}
