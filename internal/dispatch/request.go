package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

// Part is one field of a multipart/form-data body.
type Part struct {
	Name     string
	FileName string
	Header   textproto.MIMEHeader
	Data     []byte
}

// Request describes one HTTP call. It is built once and never mutated; every
// attempt derives a fresh *http.Request from it.
type Request struct {
	ID      string
	Label   string
	Method  string
	URL     string
	Header  http.Header
	Query   url.Values
	Parts   []Part
	Body    []byte
	Timeout time.Duration
}

// Source produces the Request for one batch item when the item is scheduled.
type Source func(ctx context.Context) (*Request, error)

// Static wraps an already built descriptor.
func Static(r *Request) Source {
	return func(context.Context) (*Request, error) {
		return r, nil
	}
}

// HTTPRequest builds the outgoing request for a single attempt.
func (r *Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", r.URL, err)
	}
	if len(r.Query) > 0 {
		q := u.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	method := r.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(r.Body))
	if err != nil {
		return nil, err
	}
	req.Header = r.Header.Clone()
	if req.Header == nil {
		req.Header = http.Header{}
	}
	req.ContentLength = int64(len(r.Body))

	return req, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// EncodeMultipart renders parts as a multipart/form-data body and returns the
// body together with its Content-Type. An empty boundary lets the writer pick
// a random one.
func EncodeMultipart(parts []Part, boundary string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if boundary != "" {
		if err := w.SetBoundary(boundary); err != nil {
			return nil, "", err
		}
	}

	for _, p := range parts {
		h := make(textproto.MIMEHeader, len(p.Header)+1)
		for k, v := range p.Header {
			h[k] = v
		}
		disposition := fmt.Sprintf(`form-data; name="%s"`, quoteEscaper.Replace(p.Name))
		if p.FileName != "" {
			disposition += fmt.Sprintf(`; filename="%s"`, quoteEscaper.Replace(p.FileName))
		}
		h.Set("Content-Disposition", disposition)

		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := pw.Write(p.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
