package upload

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/partnerconnex-backend/internal/errors"
)

// recordingStore counts calls and can fail signing.
type recordingStore struct {
	*MemoryStore
	puts       int
	deletes    []string
	signFails  bool
	putFailFor string
}

func (r *recordingStore) Put(ctx context.Context, key, ct string, body io.Reader) error {
	r.puts++
	if r.putFailFor != "" && strings.Contains(ct, r.putFailFor) {
		return errors.New("storage unavailable")
	}
	return r.MemoryStore.Put(ctx, key, ct, body)
}

func (r *recordingStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if r.signFails {
		return "", errors.New("no signing credentials")
	}
	return r.MemoryStore.SignedURL(ctx, key, ttl)
}

func (r *recordingStore) Delete(ctx context.Context, key string) error {
	r.deletes = append(r.deletes, key)
	return r.MemoryStore.Delete(ctx, key)
}

func newTestUploader() (*Uploader, *recordingStore) {
	store := &recordingStore{MemoryStore: NewMemoryStore("https://storage.example.com", "attachments")}
	u := NewUploader(store, Options{
		Folder:       "submissions",
		MaxBytes:     10 * megabyte,
		AllowedTypes: []string{"image/*", "application/pdf", "video/*"},
		SignedURLTTL: 365 * 24 * time.Hour,
	})
	u.now = func() time.Time { return time.UnixMilli(1757000000000) }
	return u, store
}

func file(name, ct string, size int64) File {
	return File{Name: name, ContentType: ct, Size: size, Body: strings.NewReader("data")}
}

func TestUpload_RejectsOversizedFileWithoutStorage(t *testing.T) {
	u, store := newTestUploader()

	_, err := u.Upload(context.Background(), file("big.png", "image/png", 15*megabyte))
	require.ErrorIs(t, err, appErrors.ErrFileTooLarge)
	assert.Zero(t, store.puts)
}

func TestUpload_RejectsDisallowedType(t *testing.T) {
	u, store := newTestUploader()

	_, err := u.Upload(context.Background(), file("notes.txt", "text/plain", 10))
	require.ErrorIs(t, err, appErrors.ErrFileTypeNotAllowed)
	assert.Zero(t, store.puts)
}

func TestTypeAllowed(t *testing.T) {
	allowed := []string{"image/*", "application/pdf", "video/*"}
	assert.True(t, typeAllowed("image/png", allowed))
	assert.True(t, typeAllowed("video/mp4", allowed))
	assert.True(t, typeAllowed("application/pdf", allowed))
	assert.False(t, typeAllowed("application/pdfx", allowed))
	assert.False(t, typeAllowed("text/plain", allowed))
	assert.False(t, typeAllowed("imagefoo/png", allowed))
}

func TestUpload_KeyShapeAndSignedURL(t *testing.T) {
	u, store := newTestUploader()

	got, err := u.Upload(context.Background(), file("Screenshot.PNG", "image/png", 1024))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^https://storage\.example\.com/attachments/submissions/1757000000000-[0-9a-z]{6}\.png\?expires=\d+$`), got)

	key, err := ParseObjectRef(got, "attachments")
	require.NoError(t, err)
	ct, data, ok := store.Object(key)
	require.True(t, ok)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, "data", string(data))
}

func TestUpload_FallsBackToPathWhenSigningFails(t *testing.T) {
	u, store := newTestUploader()
	store.signFails = true

	got, err := u.Upload(context.Background(), file("doc.pdf", "application/pdf", 2048))
	require.NoError(t, err)
	assert.Regexp(t, `^submissions/1757000000000-[0-9a-z]{6}\.pdf$`, got)
}

func TestUploadFiles_SequentialWithPerFileFailures(t *testing.T) {
	u, store := newTestUploader()
	store.putFailFor = "video/"

	results := u.UploadFiles(context.Background(), []File{
		file("a.png", "image/png", 1),
		file("b.txt", "text/plain", 1),
		file("c.mp4", "video/mp4", 1),
		file("d.pdf", "application/pdf", 1),
	})
	require.Len(t, results, 4)
	assert.NotEmpty(t, results[0].URL)
	assert.ErrorIs(t, results[1].Err, appErrors.ErrFileTypeNotAllowed)
	assert.NotEmpty(t, results[1].Error)
	assert.Error(t, results[2].Err)
	assert.NotEmpty(t, results[3].URL)
	assert.Len(t, URLs(results), 2)
	assert.Equal(t, 3, store.puts)
}

func TestDelete_AcceptsURLOrPath(t *testing.T) {
	u, store := newTestUploader()
	ctx := context.Background()

	signed, err := u.Upload(ctx, file("a.png", "image/png", 1))
	require.NoError(t, err)
	require.NoError(t, u.Delete(ctx, signed))

	require.NoError(t, u.Delete(ctx, "submissions/123-abcdef.png"))
	require.Len(t, store.deletes, 2)
	assert.Equal(t, "submissions/123-abcdef.png", store.deletes[1])

	err = u.Delete(ctx, "https://elsewhere.example.com/foo/bar.png")
	require.ErrorIs(t, err, appErrors.ErrUnrecognizedObjectRef)
	assert.Len(t, store.deletes, 2)
}

func TestParseObjectRef(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://proj.supabase.co/storage/v1/object/sign/attachments/submissions/1-abc.png?token=x", "submissions/1-abc.png"},
		{"https://storage.googleapis.com/attachments/submissions/1-abc.png?Expires=1&Signature=s", "submissions/1-abc.png"},
		{"https://storage.googleapis.com/attachments/submissions/1-abc.png", "submissions/1-abc.png"},
		{"submissions/1-abc.png", "submissions/1-abc.png"},
		{"/submissions/1-abc.png", "submissions/1-abc.png"},
	}
	for _, tt := range tests {
		got, err := ParseObjectRef(tt.in, "attachments")
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{
		"",
		"   ",
		"ftp://storage.googleapis.com/attachments/a.png",
		"https://storage.googleapis.com/other/a.png",
		"https://storage.googleapis.com/attachments/",
		"https://storage.googleapis.com/attachments/?sig=1",
		"a.png?x=1",
	} {
		_, err := ParseObjectRef(bad, "attachments")
		assert.ErrorIs(t, err, appErrors.ErrUnrecognizedObjectRef, bad)
	}
}
