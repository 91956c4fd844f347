package docstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/pbx/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_ReadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(p, []byte("pdf"), 0o600))

	b, err := Local{}.ReadFile(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(b))

	_, err = Local{}.ReadFile(context.Background(), filepath.Join(dir, "missing.pdf"))
	assert.ErrorIs(t, err, common.ErrMissingFile)

	_, err = Local{}.ReadFile(context.Background(), dir)
	assert.ErrorIs(t, err, common.ErrMissingFile)
}

func TestLocal_FindBareDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pdf"), []byte("x"), 0o600))

	got, err := Local{}.Find(context.Background(), dir, false, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

// fakeS3 serves objects from a map, two keys per listing page.
type fakeS3 struct {
	objects map[string]string
	keys    []string
	lists   int
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.lists++
	start := 0
	if in.ContinuationToken != nil {
		for i, k := range f.keys {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}

	out := &s3.ListObjectsV2Output{}
	n := 0
	for i := start; i < len(f.keys); i++ {
		k := f.keys[i]
		if !strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			continue
		}
		if n == 2 {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(k)
			break
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		n++
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func newFakeS3() *fakeS3 {
	f := &fakeS3{objects: map[string]string{
		"inbox/":                    "",
		"inbox/invoice/a.pdf":       "A",
		"inbox/invoice/b.pdf":       "B",
		"inbox/invoice/2024/c.pdf":  "C",
		"inbox/claim/d.pdf":         "D",
		"inbox/claim/notes.txt":     "N",
		"outbox/invoice/ignore.pdf": "X",
	}}
	for k := range f.objects {
		f.keys = append(f.keys, k)
	}
	// S3 lists keys in lexical order
	for i := range f.keys {
		for j := i + 1; j < len(f.keys); j++ {
			if f.keys[j] < f.keys[i] {
				f.keys[i], f.keys[j] = f.keys[j], f.keys[i]
			}
		}
	}
	return f
}

func TestS3Store_Find(t *testing.T) {
	f := newFakeS3()
	s := NewS3Store(f)

	got, err := s.Find(context.Background(), "s3://docs/inbox/{document_class}/{name}.pdf", false, nil)
	require.NoError(t, err)

	var paths []string
	for _, m := range got {
		paths = append(paths, m.Path)
	}
	assert.Equal(t, []string{
		"s3://docs/inbox/claim/d.pdf",
		"s3://docs/inbox/invoice/a.pdf",
		"s3://docs/inbox/invoice/b.pdf",
	}, paths)
	assert.Equal(t, "claim", got[0].Vars["document_class"])
	assert.Greater(t, f.lists, 1, "listing should follow continuation tokens")

	got, err = s.Find(context.Background(), "s3://docs/inbox/{document_class}/{name}.pdf", true, nil)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestS3Store_ReadFile(t *testing.T) {
	s := NewS3Store(newFakeS3())

	b, err := s.ReadFile(context.Background(), "s3://docs/inbox/invoice/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "A", string(b))

	_, err = s.ReadFile(context.Background(), "s3://docs/inbox/nope.pdf")
	assert.ErrorIs(t, err, common.ErrMissingFile)
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := ParseS3URL("s3://docs/inbox/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "docs", bucket)
	assert.Equal(t, "inbox/a.pdf", key)

	_, _, err = ParseS3URL("s3:///a.pdf")
	assert.Error(t, err)

	_, _, err = ParseS3URL("/local/a.pdf")
	assert.Error(t, err)
}

func TestRouter(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(local, []byte("local"), 0o600))

	created := 0
	r := NewRouter(func(context.Context) (Store, error) {
		created++
		return NewS3Store(newFakeS3()), nil
	})

	b, err := r.ReadFile(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, "local", string(b))
	assert.Equal(t, 0, created)

	b, err = r.ReadFile(context.Background(), "s3://docs/inbox/claim/d.pdf")
	require.NoError(t, err)
	assert.Equal(t, "D", string(b))

	_, err = r.Find(context.Background(), "s3://docs/inbox/*/*.pdf", false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestRouter_S3NotConfigured(t *testing.T) {
	r := NewRouter(nil)
	_, err := r.ReadFile(context.Background(), "s3://docs/a.pdf")
	assert.Error(t, err)
}
