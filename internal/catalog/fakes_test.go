package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ariefcatur/go-storefront/internal/discounts"
	"github.com/ariefcatur/go-storefront/internal/media"
	"github.com/google/uuid"
)

type memProducts struct {
	mu       sync.Mutex
	products map[uuid.UUID]Product
	images   map[uuid.UUID][]Image
}

func newMemProducts() *memProducts {
	return &memProducts{products: map[uuid.UUID]Product{}, images: map[uuid.UUID][]Image{}}
}

func (m *memProducts) Create(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = *p
	return nil
}

func (m *memProducts) Get(_ context.Context, id uuid.UUID) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (m *memProducts) List(_ context.Context, q ListQuery) ([]Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []Product
	for _, p := range m.products {
		if q.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Search)) {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	from := (q.Page - 1) * q.Limit
	if from > len(all) {
		from = len(all)
	}
	to := min(from+q.Limit, len(all))
	return append([]Product{}, all[from:to]...), len(all), nil
}

func (m *memProducts) Update(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return ErrProductNotFound
	}
	m.products[p.ID] = *p
	return nil
}

func (m *memProducts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(m.products, id)
	delete(m.images, id)
	return nil
}

func (m *memProducts) AddImages(_ context.Context, imgs []Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, img := range imgs {
		m.images[img.ProductID] = append(m.images[img.ProductID], img)
	}
	return nil
}

func (m *memProducts) Images(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[uuid.UUID][]Image{}
	for _, id := range ids {
		if imgs := m.images[id]; len(imgs) > 0 {
			out[id] = append([]Image{}, imgs...)
		}
	}
	return out, nil
}

func (m *memProducts) DeleteImage(_ context.Context, productID, imageID uuid.UUID) (*Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	imgs := m.images[productID]
	for i, img := range imgs {
		if img.ID == imageID {
			m.images[productID] = append(imgs[:i], imgs[i+1:]...)
			return &img, nil
		}
	}
	return nil, ErrImageNotFound
}

// flatPricer takes a fixed amount off every product.
type flatPricer struct{ d *discounts.Discount }

func (f flatPricer) Price(_ context.Context, _ uuid.UUID, base int64) (int64, *discounts.Discount, error) {
	if f.d == nil {
		return base, nil, nil
	}
	price, ok := discounts.Apply(base, f.d)
	if !ok {
		return base, nil, nil
	}
	return price, f.d, nil
}

type fakeUploader struct {
	mu      sync.Mutex
	n       int
	removed []string
}

func (u *fakeUploader) Upload(_ context.Context, folder, _ string, f media.File) (media.Object, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.n++
	key := folder + "/" + f.Name
	return media.Object{URL: "https://cdn.test/" + key, Key: key}, nil
}

func (u *fakeUploader) UploadAll(ctx context.Context, folder, channel string, files []media.File) ([]media.Object, error) {
	if len(files) == 0 {
		return nil, media.ErrNoFile
	}
	out := make([]media.Object, len(files))
	for i, f := range files {
		out[i], _ = u.Upload(ctx, folder, channel, f)
	}
	return out, nil
}

func (u *fakeUploader) Remove(_ context.Context, key string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.removed = append(u.removed, key)
}

type memCategories struct {
	mu   sync.Mutex
	cats map[uuid.UUID]Category
	// product counts per category
	products map[uuid.UUID]int
	allCalls int
}

func newMemCategories() *memCategories {
	return &memCategories{cats: map[uuid.UUID]Category{}, products: map[uuid.UUID]int{}}
}

func (m *memCategories) Create(_ context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cats[c.ID] = *c
	return nil
}

func (m *memCategories) Get(_ context.Context, id uuid.UUID) (*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cats[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	return &c, nil
}

func (m *memCategories) All(_ context.Context) ([]Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allCalls++
	out := make([]Category, 0, len(m.cats))
	for _, c := range m.cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memCategories) Update(_ context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cats[c.ID] = *c
	return nil
}

func (m *memCategories) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cats, id)
	return nil
}

func (m *memCategories) Dependents(_ context.Context, id uuid.UUID) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	children := 0
	for _, c := range m.cats {
		if c.ParentID != nil && *c.ParentID == id {
			children++
		}
	}
	return m.products[id], children, nil
}

func image(name string) media.File {
	return media.File{Name: name, ContentType: "image/png", Size: 3, Body: strings.NewReader("png")}
}
