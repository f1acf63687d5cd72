package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/media"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSlides struct {
	mu     sync.Mutex
	slides []Slide
}

func (m *memSlides) List(context.Context) ([]Slide, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Slide{}, m.slides...), nil
}

func (m *memSlides) Add(_ context.Context, s []Slide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slides = append(m.slides, s...)
	return nil
}

func (m *memSlides) Delete(_ context.Context, id uuid.UUID) (*Slide, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.slides {
		if s.ID == id {
			m.slides = append(m.slides[:i], m.slides[i+1:]...)
			return &s, nil
		}
	}
	return nil, ErrSlideNotFound
}

func TestSlider(t *testing.T) {
	up := &fakeUploader{}
	s := NewSliderService(&memSlides{}, up, "hero")
	ctx := context.Background()

	_, err := s.Add(ctx, "", nil, "/sale")
	assert.ErrorIs(t, err, media.ErrNoFile)

	added, err := s.Add(ctx, "ch", []media.File{image("1.png"), image("2.png")}, "/sale")
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, "/sale", added[1].Link)

	require.NoError(t, s.Remove(ctx, added[0].ID))
	assert.Equal(t, []string{"hero/1.png"}, up.removed)
	assert.ErrorIs(t, s.Remove(ctx, added[0].ID), ErrSlideNotFound)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
