// Package upload turns documents into upload requests for the integration API.
package upload

import (
	"context"
	"fmt"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/pbx/internal/dispatch"
	"github.com/dmitrijs2005/pbx/internal/docstore"
	"github.com/dmitrijs2005/pbx/internal/shared"
	"github.com/google/uuid"
)

// RequestTimeout bounds one upload attempt; documents can be large.
const RequestTimeout = 900 * time.Second

// Builder creates upload request descriptors.
type Builder struct {
	store  docstore.Store
	creds  CredentialSource
	apiKey string
}

func NewBuilder(store docstore.Store, creds CredentialSource, apiKey string) *Builder {
	return &Builder{store: store, creds: creds, apiKey: apiKey}
}

// Build validates p, reads the document and returns the request that uploads
// it. Nothing is sent.
func (b *Builder) Build(ctx context.Context, p Params) (*dispatch.Request, error) {
	if err := p.Target.Validate(); err != nil {
		return nil, err
	}

	data, err := b.store.ReadFile(ctx, p.Path)
	if err != nil {
		return nil, err
	}

	cred, err := b.creds.Credential()
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(cred.Endpoint, "/")
	target := fmt.Sprintf("%s/v2/operational/%s/documents", endpoint, p.Target.Path())

	parts := []dispatch.Part{{
		Name:     "document",
		FileName: p.Path,
		Header:   textproto.MIMEHeader{"Content-Type": []string{"application/octet-stream"}},
		Data:     data,
	}}
	for _, f := range []struct{ name, value string }{
		{VarTagTypeID, p.Metadata.TagTypeID},
		{VarDocumentClass, p.Metadata.DocumentClass},
		{VarDocumentSubclass, p.Metadata.DocumentSubclass},
	} {
		if f.value != "" {
			parts = append(parts, dispatch.Part{Name: f.name, Data: []byte(shared.ToIdentifier(f.value))})
		}
	}
	parts = append(parts, dispatch.Part{Name: "document_id", Data: []byte(p.Path)})

	suffix, err := shared.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	body, contentType, err := dispatch.EncodeMultipart(parts, "pbx"+suffix)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", p.Path, err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cred.Token)
	header.Set("Content-Type", contentType)
	header.Set("Content-Length", strconv.Itoa(len(body)))

	return &dispatch.Request{
		ID:      uuid.NewString(),
		Label:   p.Path,
		Method:  http.MethodPost,
		URL:     target,
		Header:  header,
		Query:   url.Values{"key": []string{b.apiKey}},
		Parts:   parts,
		Body:    body,
		Timeout: RequestTimeout,
	}, nil
}

// Thunk defers Build until the dispatcher schedules the item.
func (b *Builder) Thunk(p Params) dispatch.Source {
	return func(ctx context.Context) (*dispatch.Request, error) {
		return b.Build(ctx, p)
	}
}
