package catalog

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/media"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"strings"
	"time"
)

var (
	ErrCategoryNotFound = apperr.NotFound("category not found")
	ErrCategoryName     = apperr.Validation("category name is required")
	ErrCategoryInUse    = apperr.Conflict("category still has products or sub-categories")
	ErrCategoryCycle    = apperr.Validation("category cannot be its own ancestor")
)

type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	Get(ctx context.Context, id uuid.UUID) (*Category, error)
	All(ctx context.Context) ([]Category, error)
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Dependents counts products and direct children of the category.
	Dependents(ctx context.Context, id uuid.UUID) (products, children int, err error)
}

// Cache is satisfied by redisx.Cache.
type Cache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type CategoryService struct {
	repo    CategoryRepository
	cache   Cache
	ttl     time.Duration
	upload  Uploader
	folders Folders
}

func NewCategoryService(repo CategoryRepository, cache Cache, ttl time.Duration, upload Uploader, folders Folders) *CategoryService {
	if ttl <= 0 {
		ttl = redisx.TTLCategory
	}
	return &CategoryService{repo: repo, cache: cache, ttl: ttl, upload: upload, folders: folders}
}

type CategoryInput struct {
	Name    string
	Channel string // progress channel for banner/icon uploads
	Banner  *media.File
	Icon    *media.File
}

// Create adds a root category, or a sub-category when parentID is set.
func (s *CategoryService) Create(ctx context.Context, parentID *uuid.UUID, in CategoryInput) (*Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrCategoryName
	}
	if parentID != nil {
		if _, err := s.repo.Get(ctx, *parentID); err != nil {
			return nil, err
		}
	}
	c := &Category{ID: uuid.New(), Name: name, ParentID: parentID}
	uploaded, err := s.uploadAssets(ctx, c, in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		s.removeKeys(ctx, uploaded)
		return nil, err
	}
	s.Invalidate(ctx)
	log.WithFields(log.Fields{"category_id": c.ID, "parent_id": parentID}).Info("category created")
	return c, nil
}

func (s *CategoryService) Get(ctx context.Context, id uuid.UUID) (*Category, error) {
	return s.repo.Get(ctx, id)
}

// Tree returns every root category with its descendants. The result is
// cached until the next category or discount mutation.
func (s *CategoryService) Tree(ctx context.Context) ([]Category, error) {
	var tree []Category
	hit, err := s.cache.Get(ctx, redisx.KeyCategoryTree, &tree)
	if err != nil {
		log.WithError(err).Warn("category cache read failed")
	}
	if hit {
		return tree, nil
	}

	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	tree = buildTree(all, nil)
	if err := s.cache.Set(ctx, redisx.KeyCategoryTree, tree, s.ttl); err != nil {
		log.WithError(err).Warn("category cache write failed")
	}
	return tree, nil
}

// SubTree returns the category with all of its descendants.
func (s *CategoryService) SubTree(ctx context.Context, id uuid.UUID) (*Category, error) {
	root, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	root.Children = buildTree(all, &root.ID)
	return root, nil
}

func buildTree(all []Category, parent *uuid.UUID) []Category {
	byParent := map[uuid.UUID][]Category{}
	var roots []Category
	for _, c := range all {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
	}

	seen := map[uuid.UUID]bool{}
	var attach func(cs []Category) []Category
	attach = func(cs []Category) []Category {
		out := make([]Category, 0, len(cs))
		for _, c := range cs {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			c.Children = attach(byParent[c.ID])
			out = append(out, c)
		}
		return out
	}
	if parent != nil {
		seen[*parent] = true
		return attach(byParent[*parent])
	}
	return attach(roots)
}

// Update renames the category and/or replaces its assets. Old objects
// are deleted only after the row points at the new ones.
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, in CategoryInput) (*Category, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		c.Name = strings.TrimSpace(in.Name)
		if c.Name == "" {
			return nil, ErrCategoryName
		}
	}
	oldBanner, oldIcon := c.BannerKey, c.IconKey
	uploaded, err := s.uploadAssets(ctx, c, in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		s.removeKeys(ctx, uploaded)
		return nil, err
	}
	if in.Banner != nil && oldBanner != "" {
		s.upload.Remove(ctx, oldBanner)
	}
	if in.Icon != nil && oldIcon != "" {
		s.upload.Remove(ctx, oldIcon)
	}
	s.Invalidate(ctx)
	return c, nil
}

// SetParent moves a category under another one (nil makes it a root).
func (s *CategoryService) SetParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) (*Category, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		all, err := s.repo.All(ctx)
		if err != nil {
			return nil, err
		}
		parents := map[uuid.UUID]*uuid.UUID{}
		for _, x := range all {
			parents[x.ID] = x.ParentID
		}
		if _, ok := parents[*parentID]; !ok {
			return nil, ErrCategoryNotFound
		}
		for cur := parentID; cur != nil; cur = parents[*cur] {
			if *cur == id {
				return nil, ErrCategoryCycle
			}
		}
	}
	c.ParentID = parentID
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	products, children, err := s.repo.Dependents(ctx, id)
	if err != nil {
		return err
	}
	if products > 0 || children > 0 {
		e := ErrCategoryInUse.WithOp("catalog.DeleteCategory")
		e.Details = map[string]string{
			"products":       itoa(products),
			"sub_categories": itoa(children),
		}
		return e
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeKeys(ctx, []string{c.BannerKey, c.IconKey})
	s.Invalidate(ctx)
	return nil
}

// Invalidate drops the cached tree. Cache errors are logged only.
func (s *CategoryService) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, redisx.KeyCategoryTree); err != nil {
		log.WithError(err).Warn("category cache invalidation failed")
	}
}

func (s *CategoryService) uploadAssets(ctx context.Context, c *Category, in CategoryInput) ([]string, error) {
	var keys []string
	if in.Banner != nil {
		obj, err := s.upload.Upload(ctx, s.folders.CategoryBanner, in.Channel, *in.Banner)
		if err != nil {
			return nil, err
		}
		c.BannerURL, c.BannerKey = obj.URL, obj.Key
		keys = append(keys, obj.Key)
	}
	if in.Icon != nil {
		obj, err := s.upload.Upload(ctx, s.folders.CategoryIcon, in.Channel, *in.Icon)
		if err != nil {
			s.removeKeys(ctx, keys)
			return nil, err
		}
		c.IconURL, c.IconKey = obj.URL, obj.Key
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (s *CategoryService) removeKeys(ctx context.Context, keys []string) {
	for _, k := range keys {
		if k != "" {
			s.upload.Remove(ctx, k)
		}
	}
}
