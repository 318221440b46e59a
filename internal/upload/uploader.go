// Package upload stores influencer attachments in object storage.
package upload

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"mime"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/unclebandit/partnerconnex-backend/internal/config"
	appErrors "github.com/unclebandit/partnerconnex-backend/internal/errors"
	"github.com/unclebandit/partnerconnex-backend/internal/logger"
)

const megabyte = 1024 * 1024

type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Result is the outcome for one file of a batch. Exactly one of URL and Error is set.
type Result struct {
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`
}

type Options struct {
	Folder       string
	MaxBytes     int64
	AllowedTypes []string
	SignedURLTTL time.Duration
}

// OptionsFromConfig converts the configured megabyte ceiling to bytes.
func OptionsFromConfig(s config.Storage, u config.Upload) Options {
	return Options{
		Folder:       s.Folder,
		MaxBytes:     int64(u.MaxSizeMB) * megabyte,
		AllowedTypes: u.AllowedTypes,
		SignedURLTTL: s.SignedURLTTL,
	}
}

type Uploader struct {
	store ObjectStore
	opts  Options
	now   func() time.Time
}

func NewUploader(store ObjectStore, opts Options) *Uploader {
	return &Uploader{store: store, opts: opts, now: time.Now}
}

// Check applies the size ceiling and the type allow-list.
func (u *Uploader) Check(f File) error {
	if u.opts.MaxBytes > 0 && f.Size > u.opts.MaxBytes {
		return fmt.Errorf("%w: %s is %d bytes, limit is %dMB", appErrors.ErrFileTooLarge, f.Name, f.Size, u.opts.MaxBytes/megabyte)
	}
	if len(u.opts.AllowedTypes) > 0 && !typeAllowed(contentType(f), u.opts.AllowedTypes) {
		return fmt.Errorf("%w: %s (%s)", appErrors.ErrFileTypeNotAllowed, f.Name, contentType(f))
	}
	return nil
}

// typeAllowed matches exactly or by "category/*".
func typeAllowed(ct string, allowed []string) bool {
	for _, a := range allowed {
		if strings.HasSuffix(a, "/*") {
			if strings.HasPrefix(ct, strings.TrimSuffix(a, "*")) {
				return true
			}
			continue
		}
		if ct == a {
			return true
		}
	}
	return false
}

func contentType(f File) string {
	if f.ContentType != "" {
		ct, _, err := mime.ParseMediaType(f.ContentType)
		if err == nil {
			return ct
		}
		return f.ContentType
	}
	if byExt := mime.TypeByExtension(path.Ext(f.Name)); byExt != "" {
		ct, _, _ := mime.ParseMediaType(byExt)
		return ct
	}
	return "application/octet-stream"
}

// objectKey is "{folder}/{unix millis}-{6 base36 chars}{.ext}".
func (u *Uploader) objectKey(name string) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = alphabet[rand.Intn(len(alphabet))]
	}
	key := strconv.FormatInt(u.now().UnixMilli(), 10) + "-" + string(suffix) + strings.ToLower(path.Ext(name))
	if folder := strings.Trim(u.opts.Folder, "/"); folder != "" {
		key = folder + "/" + key
	}
	return key
}

// Upload stores f and returns a signed URL, or the raw object path when
// signing fails. Rejections happen before any storage call.
func (u *Uploader) Upload(ctx context.Context, f File) (string, error) {
	if err := u.Check(f); err != nil {
		return "", err
	}
	key := u.objectKey(f.Name)
	if err := u.store.Put(ctx, key, contentType(f), f.Body); err != nil {
		return "", fmt.Errorf("upload %s: %w", f.Name, err)
	}

	signed, err := u.store.SignedURL(ctx, key, u.opts.SignedURLTTL)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"object": key,
			"error":  err,
		}).Warn("⚠️ Signed URL failed, returning object path")
		return key, nil
	}
	return signed, nil
}

// UploadFiles uploads one file at a time. A failure is recorded for that file
// and the rest continue.
func (u *Uploader) UploadFiles(ctx context.Context, files []File) []Result {
	results := make([]Result, 0, len(files))
	for _, f := range files {
		r := Result{Name: f.Name}
		if err := ctx.Err(); err != nil {
			r.Err = err
		} else {
			r.URL, r.Err = u.Upload(ctx, f)
		}
		if r.Err != nil {
			r.Error = r.Err.Error()
		}
		results = append(results, r)
	}
	return results
}

// URLs returns the successful URLs of a batch in order.
func URLs(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		if r.Err == nil && r.URL != "" {
			out = append(out, r.URL)
		}
	}
	return out
}

// ObjectKey resolves a signed URL or raw path to the key in this uploader's bucket.
func (u *Uploader) ObjectKey(ref string) (string, error) {
	return ParseObjectRef(ref, u.store.Bucket())
}

// Delete removes the object behind a signed URL or raw path.
func (u *Uploader) Delete(ctx context.Context, ref string) error {
	key, err := u.ObjectKey(ref)
	if err != nil {
		return err
	}
	if err := u.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// ParseObjectRef recovers the object key from what Upload returned.
//
// A value without a scheme is taken as the key itself. For http(s) URLs the
// key is the path after "/object/sign/<bucket>/" or, failing that, after
// "/<bucket>/"; the query string is dropped. Anything else, including a URL
// with an empty key, is ErrUnrecognizedObjectRef.
func ParseObjectRef(ref, bucket string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", appErrors.ErrUnrecognizedObjectRef)
	}
	if !strings.Contains(ref, "://") {
		key := strings.TrimLeft(ref, "/")
		if key == "" || strings.ContainsAny(key, "?#") {
			return "", fmt.Errorf("%w: %q", appErrors.ErrUnrecognizedObjectRef, ref)
		}
		return key, nil
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", appErrors.ErrUnrecognizedObjectRef, ref)
	}
	for _, marker := range []string{"/object/sign/" + bucket + "/", "/" + bucket + "/"} {
		i := strings.Index(u.Path, marker)
		if i < 0 {
			continue
		}
		key := u.Path[i+len(marker):]
		if key == "" {
			break
		}
		return key, nil
	}
	return "", fmt.Errorf("%w: %q", appErrors.ErrUnrecognizedObjectRef, ref)
}
