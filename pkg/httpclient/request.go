package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Request describes a single outgoing call. The session client never mutates
// a Request handed to it.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Query  url.Values

	// Body is encoded as JSON unless the request is multipart or Raw is set.
	Body any
	// Raw marks Body as an opaque binary payload ([]byte or io.Reader).
	Raw bool

	FormFields map[string]string
	Files      []FileField

	// Result, when non-nil, receives the JSON-decoded body of a 2xx response.
	Result any
}

// FileField is one file part of a multipart upload.
type FileField struct {
	Param    string
	FileName string
	Reader   io.Reader

	data []byte
}

// RequestOption customizes a Request built by the verb helpers.
type RequestOption func(*Request)

// WithHeader adds a header value.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = make(http.Header)
		}
		r.Header.Add(key, value)
	}
}

// WithQuery adds a query parameter.
func WithQuery(key, value string) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(url.Values)
		}
		r.Query.Add(key, value)
	}
}

// WithMultipartField adds a plain form field and turns the request into a multipart upload.
func WithMultipartField(key, value string) RequestOption {
	return func(r *Request) {
		if r.FormFields == nil {
			r.FormFields = make(map[string]string)
		}
		r.FormFields[key] = value
	}
}

// WithFile attaches a file part and turns the request into a multipart upload.
func WithFile(param, fileName string, reader io.Reader) RequestOption {
	return func(r *Request) {
		r.Files = append(r.Files, FileField{Param: param, FileName: fileName, Reader: reader})
	}
}

// WithRawBody sends body as-is without a JSON content type.
func WithRawBody(body []byte) RequestOption {
	return func(r *Request) {
		r.Body = body
		r.Raw = true
	}
}

// WithResult decodes a successful JSON response into v.
func WithResult(v any) RequestOption {
	return func(r *Request) { r.Result = v }
}

// IsMultipart reports whether the body must be sent with a transport-computed content type.
func (r *Request) IsMultipart() bool {
	return r.Raw || len(r.Files) > 0 || len(r.FormFields) > 0
}

// prepare copies the request and buffers every reader so the copy can be sent more than once.
func (r *Request) prepare() (*Request, error) {
	if r == nil {
		return nil, fmt.Errorf("request must not be nil")
	}
	if r.Method == "" {
		return nil, fmt.Errorf("request method is required")
	}

	cp := *r
	cp.Header = r.Header.Clone()
	if r.Query != nil {
		cp.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			cp.Query[k] = append([]string(nil), v...)
		}
	}
	if r.FormFields != nil {
		cp.FormFields = make(map[string]string, len(r.FormFields))
		for k, v := range r.FormFields {
			cp.FormFields[k] = v
		}
	}

	if reader, ok := r.Body.(io.Reader); ok {
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		cp.Body = data
		cp.Raw = true
	}

	cp.Files = make([]FileField, len(r.Files))
	for i, f := range r.Files {
		data := f.data
		if data == nil && f.Reader != nil {
			var err error
			if data, err = io.ReadAll(f.Reader); err != nil {
				return nil, fmt.Errorf("read file %q: %w", f.FileName, err)
			}
		}
		cp.Files[i] = FileField{Param: f.Param, FileName: f.FileName, data: data}
	}
	return &cp, nil
}

func (f FileField) reader() io.Reader { return bytes.NewReader(f.data) }

// attempt carries a prepared request through the recovery path.
type attempt struct {
	req     *Request
	retried bool
}

// retry returns the attempt to re-issue after a renewal.
func (a *attempt) retry() *attempt {
	return &attempt{req: a.req, retried: true}
}
