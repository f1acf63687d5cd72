package catalog

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/discounts"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/ariefcatur/go-storefront/internal/media"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"regexp"
	"strings"
)

var (
	ErrProductNotFound  = apperr.NotFound("product not found")
	ErrImageNotFound    = apperr.NotFound("image not found")
	ErrProductName      = apperr.Validation("product name is required")
	ErrCategoryRequired = apperr.Validation("category is required")
	ErrPriceNegative    = apperr.Validation("price cannot be negative")
	ErrInvalidStatus    = apperr.Validation("status must be ACTIVE or INACTIVE")
	ErrSlugEmpty        = apperr.Validation("slug cannot be empty")
	ErrNothingToUpdate  = apperr.Validation("no field to update")
)

type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context, q ListQuery) ([]Product, int, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddImages(ctx context.Context, imgs []Image) error
	Images(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]Image, error)
	DeleteImage(ctx context.Context, productID, imageID uuid.UUID) (*Image, error)
}

type Pricer interface {
	Price(ctx context.Context, productID uuid.UUID, base int64) (int64, *discounts.Discount, error)
}

type Inventories interface {
	ListByProducts(ctx context.Context, productIDs []uuid.UUID) ([]inventory.Inventory, error)
}

type Uploader interface {
	Upload(ctx context.Context, folder, channel string, f media.File) (media.Object, error)
	UploadAll(ctx context.Context, folder, channel string, files []media.File) ([]media.Object, error)
	Remove(ctx context.Context, key string)
}

type ProductService struct {
	repo    ProductRepository
	pricer  Pricer
	inv     Inventories
	upload  Uploader
	folders Folders
}

func NewProductService(repo ProductRepository, pricer Pricer, inv Inventories, upload Uploader, folders Folders) *ProductService {
	return &ProductService{repo: repo, pricer: pricer, inv: inv, upload: upload, folders: folders}
}

type CreateProductInput struct {
	Name       string    `json:"name"`
	CategoryID uuid.UUID `json:"category_id"`
}

// UpdateProductInput: nil fields are left untouched.
type UpdateProductInput struct {
	Name        *string    `json:"name"`
	Slug        *string    `json:"slug"`
	Description *string    `json:"description"`
	Brand       *string    `json:"brand"`
	Model       *string    `json:"model"`
	Tags        []string   `json:"tags"`
	Price       *int64     `json:"price"`
	Status      *Status    `json:"status"`
	CategoryID  *uuid.UUID `json:"category_id"`
}

func (s *ProductService) Create(ctx context.Context, in CreateProductInput) (*Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrProductName
	}
	if in.CategoryID == uuid.Nil {
		return nil, ErrCategoryRequired
	}
	p := &Product{
		ID:         uuid.New(),
		Name:       name,
		Status:     StatusActive,
		CategoryID: in.CategoryID,
		Tags:       []string{},
	}
	p.Slug = slugify(name) + "-" + p.ID.String()[:8]
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"product_id": p.ID, "name": p.Name}).Info("product created")
	return s.Get(ctx, p.ID, Includes{})
}

// Get returns the product priced with the discount that applies right now.
func (s *ProductService) Get(ctx context.Context, id uuid.UUID, inc Includes) (*Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ps := []Product{*p}
	if err := s.decorate(ctx, ps, inc); err != nil {
		return nil, err
	}
	return &ps[0], nil
}

func (s *ProductService) List(ctx context.Context, q ListQuery) (*ProductPage, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	ps, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(ctx, ps, q.Includes); err != nil {
		return nil, err
	}
	return &ProductPage{Products: ps, Total: total, CurrentPage: q.Page, Limit: q.Limit}, nil
}

// decorate prices every product concurrently and attaches the requested relations.
func (s *ProductService) decorate(ctx context.Context, ps []Product, inc Includes) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range ps {
		g.Go(func() error {
			price, d, err := s.pricer.Price(gctx, ps[i].ID, ps[i].Price)
			if err != nil {
				return err
			}
			ps[i].DiscountedPrice, ps[i].Discount = price, d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	ids := make([]uuid.UUID, len(ps))
	for i := range ps {
		ids[i] = ps[i].ID
	}
	if inc.Inventories && s.inv != nil {
		invs, err := s.inv.ListByProducts(ctx, ids)
		if err != nil {
			return err
		}
		byProduct := map[uuid.UUID][]inventory.Inventory{}
		for _, inv := range invs {
			byProduct[inv.ProductID] = append(byProduct[inv.ProductID], inv)
		}
		for i := range ps {
			ps[i].Inventories = byProduct[ps[i].ID]
			if ps[i].Inventories == nil {
				ps[i].Inventories = []inventory.Inventory{}
			}
		}
	}
	if inc.Images {
		imgs, err := s.repo.Images(ctx, ids)
		if err != nil {
			return err
		}
		for i := range ps {
			ps[i].Images = imgs[ps[i].ID]
			if ps[i].Images == nil {
				ps[i].Images = []Image{}
			}
		}
	}
	return nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, in UpdateProductInput) (*Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.Get(ctx, id, Includes{})
}

func (in UpdateProductInput) apply(p *Product) error {
	changed := false
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return ErrProductName
		}
		p.Name, changed = name, true
	}
	if in.Slug != nil {
		slug := slugify(*in.Slug)
		if slug == "" {
			return ErrSlugEmpty
		}
		p.Slug, changed = slug, true
	}
	if in.Description != nil {
		p.Description, changed = *in.Description, true
	}
	if in.Brand != nil {
		p.Brand, changed = strings.ToLower(strings.TrimSpace(*in.Brand)), true
	}
	if in.Model != nil {
		p.Model, changed = strings.TrimSpace(*in.Model), true
	}
	if in.Tags != nil {
		tags := make([]string, 0, len(in.Tags))
		for _, t := range in.Tags {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				tags = append(tags, t)
			}
		}
		p.Tags, changed = tags, true
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return ErrPriceNegative
		}
		p.Price, changed = *in.Price, true
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return ErrInvalidStatus
		}
		p.Status, changed = *in.Status, true
	}
	if in.CategoryID != nil {
		if *in.CategoryID == uuid.Nil {
			return ErrCategoryRequired
		}
		p.CategoryID, changed = *in.CategoryID, true
	}
	if !changed {
		return ErrNothingToUpdate
	}
	return nil
}

// Delete removes the product; its image files are deleted afterwards.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	imgs, err := s.repo.Images(ctx, []uuid.UUID{id})
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	for _, img := range imgs[id] {
		s.upload.Remove(ctx, img.Key)
	}
	return nil
}

// AddImages uploads files concurrently, progress reported on channel.
func (s *ProductService) AddImages(ctx context.Context, id uuid.UUID, channel string, files []media.File) (*Product, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	objs, err := s.upload.UploadAll(ctx, s.folders.ProductImage, channel, files)
	if err != nil {
		return nil, err
	}
	imgs := make([]Image, len(objs))
	for i, o := range objs {
		imgs[i] = Image{ID: uuid.New(), ProductID: id, URL: o.URL, Key: o.Key}
	}
	if err := s.repo.AddImages(ctx, imgs); err != nil {
		for _, o := range objs {
			s.upload.Remove(ctx, o.Key)
		}
		return nil, err
	}
	return s.Get(ctx, id, Includes{Images: true})
}

func (s *ProductService) RemoveImage(ctx context.Context, productID, imageID uuid.UUID) (*Product, error) {
	img, err := s.repo.DeleteImage(ctx, productID, imageID)
	if err != nil {
		return nil, err
	}
	s.upload.Remove(ctx, img.Key)
	return s.Get(ctx, productID, Includes{Images: true})
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
