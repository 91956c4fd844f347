package upload

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/pbx/internal/auth"
	"github.com/dmitrijs2005/pbx/internal/auth/authtest"
	"github.com/dmitrijs2005/pbx/internal/common"
	"github.com/dmitrijs2005/pbx/internal/dispatch"
	"github.com/dmitrijs2005/pbx/internal/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func staticCreds(endpoint string) StaticCredential {
	return StaticCredential{Cred: &auth.Credential{
		Token:     "signed.jwt.token",
		Endpoint:  endpoint,
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}}
}

func readParts(t *testing.T, contentType string, body []byte) map[string]*formPart {
	t.Helper()
	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)

	out := map[string]*formPart{}
	r := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		data, err := io.ReadAll(p)
		require.NoError(t, err)
		out[p.FormName()] = &formPart{fileName: p.FileName(), contentType: p.Header.Get("Content-Type"), data: string(data)}
	}
}

type formPart struct {
	fileName    string
	contentType string
	data        string
}

func TestBuild_InboxRequest(t *testing.T) {
	doc := writeDoc(t, "foo.pdf", "%PDF")
	b := NewBuilder(docstore.Local{}, staticCreds("https://integration.tst.paperbox.ai/"), "api-key")

	req, err := b.Build(context.Background(), Params{
		Path:   doc,
		Target: Target{InboxID: "in-1"},
		Metadata: Metadata{
			DocumentClass:    "Invoice Type #1.A",
			DocumentSubclass: "credit.note",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://integration.tst.paperbox.ai/v2/operational/inboxes/in-1/documents", req.URL)
	assert.Equal(t, "api-key", req.Query.Get("key"))
	assert.Equal(t, "Bearer signed.jwt.token", req.Header.Get("Authorization"))
	assert.Equal(t, strconv.Itoa(len(req.Body)), req.Header.Get("Content-Length"))
	assert.Equal(t, RequestTimeout, req.Timeout)
	assert.Equal(t, doc, req.Label)
	assert.NotEmpty(t, req.ID)

	parts := readParts(t, req.Header.Get("Content-Type"), req.Body)
	require.Contains(t, parts, "document")
	assert.Equal(t, "%PDF", parts["document"].data)
	assert.Equal(t, doc, parts["document"].fileName)
	assert.Equal(t, "application/octet-stream", parts["document"].contentType)
	assert.Equal(t, "INVOICETYPE1_A", parts["document_class"].data)
	assert.Equal(t, "CREDIT_NOTE", parts["document_subclass"].data)
	assert.Equal(t, doc, parts["document_id"].data)
	assert.NotContains(t, parts, "tag_type_id")
}

func TestBuild_RouterRequest(t *testing.T) {
	doc := writeDoc(t, "foo.pdf", "x")
	b := NewBuilder(docstore.Local{}, staticCreds("https://integration.prd.paperbox.ai"), "k")

	req, err := b.Build(context.Background(), Params{Path: doc, Target: Target{RouterID: "r-9"}})
	require.NoError(t, err)
	assert.Equal(t, "https://integration.prd.paperbox.ai/v2/operational/routers/r-9/documents", req.URL)
}

func TestBuild_InvalidTarget(t *testing.T) {
	doc := writeDoc(t, "foo.pdf", "x")
	b := NewBuilder(docstore.Local{}, staticCreds("https://e"), "k")

	_, err := b.Build(context.Background(), Params{Path: doc})
	assert.ErrorIs(t, err, common.ErrInvalidTarget)

	_, err = b.Build(context.Background(), Params{Path: doc, Target: Target{InboxID: "a", RouterID: "b"}})
	assert.ErrorIs(t, err, common.ErrInvalidTarget)
}

func TestBuild_MissingFile(t *testing.T) {
	b := NewBuilder(docstore.Local{}, staticCreds("https://e"), "k")

	_, err := b.Build(context.Background(), Params{
		Path:   filepath.Join(t.TempDir(), "gone.pdf"),
		Target: Target{InboxID: "in"},
	})
	assert.ErrorIs(t, err, common.ErrMissingFile)
}

func TestBuild_CredentialError(t *testing.T) {
	doc := writeDoc(t, "foo.pdf", "x")
	creds := NewCachedCredentials(filepath.Join(t.TempDir(), "missing.json"), time.Hour)
	b := NewBuilder(docstore.Local{}, creds, "k")

	_, err := b.Build(context.Background(), Params{Path: doc, Target: Target{InboxID: "in"}})
	assert.ErrorIs(t, err, common.ErrCredential)
}

func TestCachedCredentials_MintsOnce(t *testing.T) {
	keyFile, _ := authtest.WriteKeyFile(t, "acme-tst")
	creds := NewCachedCredentials(keyFile, time.Hour)

	first, err := creds.Credential()
	require.NoError(t, err)
	second, err := creds.Credential()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "https://integration.tst.paperbox.ai", first.Endpoint)
}

func TestThunk_DefersErrors(t *testing.T) {
	b := NewBuilder(docstore.Local{}, staticCreds("https://e"), "k")
	missing := filepath.Join(t.TempDir(), "later.pdf")

	src := b.Thunk(Params{Path: missing, Target: Target{InboxID: "in"}})

	// the file appears after enumeration but before dispatch
	require.NoError(t, os.WriteFile(missing, []byte("x"), 0o600))
	req, err := src(context.Background())
	require.NoError(t, err)
	assert.Equal(t, missing, req.Label)
}

func TestParams_WithVars(t *testing.T) {
	p := Params{
		Path:     "a.pdf",
		Target:   Target{InboxID: "cli-inbox"},
		Metadata: Metadata{DocumentClass: "cli-class", TagTypeID: "tag"},
	}

	got := p.WithVars(map[string]string{
		"document_class":    "invoice",
		"document_subclass": "credit",
		"name":              "ignored",
	})

	assert.Equal(t, "invoice", got.Metadata.DocumentClass)
	assert.Equal(t, "credit", got.Metadata.DocumentSubclass)
	assert.Equal(t, "tag", got.Metadata.TagTypeID)
	assert.Equal(t, "cli-inbox", got.Target.InboxID)
	assert.Equal(t, "cli-class", p.Metadata.DocumentClass, "receiver must not change")

	got = p.WithVars(map[string]string{"router_id": "r"})
	assert.ErrorIs(t, got.Target.Validate(), common.ErrInvalidTarget)
}

func TestTarget_Path(t *testing.T) {
	assert.Equal(t, "inboxes/a", Target{InboxID: "a"}.Path())
	assert.Equal(t, "routers/b", Target{RouterID: "b"}.Path())
	assert.NoError(t, Target{InboxID: "a"}.Validate())

	assert.Equal(t, "inboxes/a", Target{InboxID: "a"}.String())
	assert.Empty(t, Target{}.String())
	assert.Empty(t, Target{InboxID: "a", RouterID: "b"}.String())
}

func TestUploader_Upload(t *testing.T) {
	var gotAuth, gotKey, gotClass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.URL.Query().Get("key")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotClass = r.FormValue("document_class")
		if r.URL.Path != "/v2/operational/inboxes/in-1/documents" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	doc := writeDoc(t, "foo.pdf", "%PDF")
	b := NewBuilder(docstore.Local{}, staticCreds(srv.URL), "secret")
	cfg := dispatch.DefaultConfig()
	cfg.Interval = 0
	u := NewUploader(b, dispatch.New(srv.Client(), cfg, nil))

	params := Params{Path: doc, Target: Target{InboxID: "in-1"}, Metadata: Metadata{DocumentClass: "claim form"}}

	req, res, err := u.Upload(context.Background(), params, true)
	require.NoError(t, err)
	assert.NotNil(t, req)
	assert.Nil(t, res)
	assert.Empty(t, gotAuth, "dry run must not send")

	req, res, err = u.Upload(context.Background(), params, false)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.OK)
	assert.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, req.ID, res.RequestID)
	assert.Equal(t, "Bearer signed.jwt.token", gotAuth)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "CLAIMFORM", gotClass)
}

func TestUploader_UploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	doc := writeDoc(t, "foo.pdf", "%PDF")
	b := NewBuilder(docstore.Local{}, staticCreds(srv.URL), "secret")
	u := NewUploader(b, dispatch.New(srv.Client(), dispatch.Config{Attempts: 1}, nil))

	_, res, err := u.Upload(context.Background(), Params{Path: doc, Target: Target{RouterID: "r"}}, false)
	var be *dispatch.BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusBadRequest, res.Status)
}
