package catalog

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/media"
	"github.com/google/uuid"
)

var ErrSlideNotFound = apperr.NotFound("hero slider image not found")

type SlideRepository interface {
	List(ctx context.Context) ([]Slide, error)
	Add(ctx context.Context, slides []Slide) error
	Delete(ctx context.Context, id uuid.UUID) (*Slide, error)
}

type SliderService struct {
	repo   SlideRepository
	upload Uploader
	folder string
}

func NewSliderService(repo SlideRepository, upload Uploader, folder string) *SliderService {
	return &SliderService{repo: repo, upload: upload, folder: folder}
}

func (s *SliderService) List(ctx context.Context) ([]Slide, error) { return s.repo.List(ctx) }

// Add uploads every file and stores one slide per file, all sharing link.
func (s *SliderService) Add(ctx context.Context, channel string, files []media.File, link string) ([]Slide, error) {
	objs, err := s.upload.UploadAll(ctx, s.folder, channel, files)
	if err != nil {
		return nil, err
	}
	slides := make([]Slide, len(objs))
	for i, o := range objs {
		slides[i] = Slide{ID: uuid.New(), URL: o.URL, Key: o.Key, Link: link}
	}
	if err := s.repo.Add(ctx, slides); err != nil {
		for _, o := range objs {
			s.upload.Remove(ctx, o.Key)
		}
		return nil, err
	}
	return slides, nil
}

func (s *SliderService) Remove(ctx context.Context, id uuid.UUID) error {
	sl, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.upload.Remove(ctx, sl.Key)
	return nil
}
