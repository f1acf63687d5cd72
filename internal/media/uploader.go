package media

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"io"
	"path"
	"strings"
)

var ErrNoFile = apperr.Validation("file is required")

type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

type ProgressPublisher interface {
	Publish(ctx context.Context, channel string, ev redisx.ProgressEvent)
}

// Uploader stores files under a folder and reports progress per file on
// an optional channel.
type Uploader struct {
	Store    Storage
	Progress ProgressPublisher
}

func (u *Uploader) Upload(ctx context.Context, folder, channel string, f File) (Object, error) {
	if f.Body == nil {
		return Object{}, ErrNoFile
	}
	if !strings.HasPrefix(f.ContentType, "image/") && f.ContentType != "" {
		return Object{}, apperr.Validationf("%s is not an image", f.Name)
	}
	key := path.Join(folder, uuid.NewString()+strings.ToLower(path.Ext(f.Name)))
	body := f.Body
	if u.Progress != nil && channel != "" {
		body = newProgressReader(ctx, f, u.Progress, channel)
	}
	return u.Store.Put(ctx, key, body, f.Size, f.ContentType)
}

// UploadAll uploads concurrently. If any upload fails, the ones that
// succeeded are deleted again and the first error is returned.
func (u *Uploader) UploadAll(ctx context.Context, folder, channel string, files []File) ([]Object, error) {
	if len(files) == 0 {
		return nil, ErrNoFile
	}
	out := make([]Object, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			obj, err := u.Upload(gctx, folder, channel, f)
			if err != nil {
				return err
			}
			out[i] = obj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, obj := range out {
			if obj.Key != "" {
				u.Remove(context.WithoutCancel(ctx), obj.Key)
			}
		}
		return nil, err
	}
	return out, nil
}

// Remove deletes an object; failures are logged, never returned.
func (u *Uploader) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := u.Store.Delete(ctx, key); err != nil {
		log.WithError(err).WithField("key", key).Warn("delete object failed")
	}
}
