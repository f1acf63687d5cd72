package httpx

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/ariefcatur/go-storefront/internal/media"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"net/http"
	"strings"
)

type CategoryService interface {
	Create(ctx context.Context, parentID *uuid.UUID, in catalog.CategoryInput) (*catalog.Category, error)
	Get(ctx context.Context, id uuid.UUID) (*catalog.Category, error)
	Tree(ctx context.Context) ([]catalog.Category, error)
	SubTree(ctx context.Context, id uuid.UUID) (*catalog.Category, error)
	Update(ctx context.Context, id uuid.UUID, in catalog.CategoryInput) (*catalog.Category, error)
	SetParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) (*catalog.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ProductService interface {
	Create(ctx context.Context, in catalog.CreateProductInput) (*catalog.Product, error)
	Get(ctx context.Context, id uuid.UUID, inc catalog.Includes) (*catalog.Product, error)
	List(ctx context.Context, q catalog.ListQuery) (*catalog.ProductPage, error)
	Update(ctx context.Context, id uuid.UUID, in catalog.UpdateProductInput) (*catalog.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddImages(ctx context.Context, id uuid.UUID, channel string, files []media.File) (*catalog.Product, error)
	RemoveImage(ctx context.Context, productID, imageID uuid.UUID) (*catalog.Product, error)
}

type SliderService interface {
	List(ctx context.Context) ([]catalog.Slide, error)
	Add(ctx context.Context, channel string, files []media.File, link string) ([]catalog.Slide, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

type CatalogHandler struct {
	Categories  CategoryService
	Products    ProductService
	Inventories InventoryService
	Slider      SliderService
	Auth        *Auth
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/categories", h.categoryTree)
	r.With(h.Auth.Admin).Post("/categories", h.createCategory)
	r.Get("/categories/{id}", h.getCategory)
	r.Get("/categories/{id}/tree", h.categorySubTree)
	r.With(h.Auth.Admin).Post("/categories/{id}", h.createCategory)
	r.With(h.Auth.Admin).Patch("/categories/{id}", h.updateCategory)
	r.With(h.Auth.Admin).Delete("/categories/{id}", h.deleteCategory)

	r.Get("/products", h.listProducts)
	r.With(h.Auth.Admin).Post("/products", h.createProduct)
	r.Get("/products/{id}", h.getProduct)
	r.With(h.Auth.Admin).Patch("/products/{id}", h.updateProduct)
	r.With(h.Auth.Admin).Delete("/products/{id}", h.deleteProduct)
	r.With(h.Auth.Admin).Post("/products/{id}/images", h.addImages)
	r.With(h.Auth.Admin).Delete("/products/{id}/images/{imageID}", h.removeImage)
	r.With(h.Auth.Admin).Post("/products/{id}/inventories", h.createInventory)

	r.Get("/hero-slider-images", h.listSlides)
	r.With(h.Auth.Admin).Post("/hero-slider-images", h.addSlides)
	r.With(h.Auth.Admin).Delete("/hero-slider-images/{id}", h.removeSlide)
}

// categoryInput reads name, banner, icon and the progress channel.
func categoryInput(r *http.Request) (catalog.CategoryInput, *multipartForm, error) {
	form, err := parseMultipart(r)
	if err != nil {
		return catalog.CategoryInput{}, nil, err
	}
	in := catalog.CategoryInput{Name: form.value("name"), Channel: form.value("channel")}
	if in.Banner, err = form.file("banner"); err != nil {
		form.close()
		return catalog.CategoryInput{}, nil, err
	}
	if in.Icon, err = form.file("icon"); err != nil {
		form.close()
		return catalog.CategoryInput{}, nil, err
	}
	return in, form, nil
}

// createCategory serves both POST /categories and POST /categories/{id};
// the latter creates a sub-category.
func (h *CatalogHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var parent *uuid.UUID
	if chi.URLParam(r, "id") != "" {
		id, err := urlID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		parent = &id
	}
	in, form, err := categoryInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer form.close()

	c, err := h.Categories.Create(r.Context(), parent, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Category created", "category", c)
}

func (h *CatalogHandler) categoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.Categories.Tree(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "categories": tree})
}

func (h *CatalogHandler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Categories.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "category": c})
}

func (h *CatalogHandler) categorySubTree(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Categories.SubTree(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "category": c})
}

// updateCategory also moves the category when the form carries parent_id
// ("root" or "" detaches it).
func (h *CatalogHandler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, form, err := categoryInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer form.close()

	c, err := h.Categories.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if vs, ok := form.form.Value["parent_id"]; ok {
		var parent *uuid.UUID
		if v := strings.TrimSpace(vs[0]); v != "" && v != "root" {
			pid, err := uuid.Parse(v)
			if err != nil {
				writeError(w, r, errInvalidID)
				return
			}
			parent = &pid
		}
		if c, err = h.Categories.SetParent(r.Context(), id, parent); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeOK(w, http.StatusOK, "Category updated", "category", c)
}

func (h *CatalogHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Categories.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Category deleted", "", nil)
}

func productIncludes(r *http.Request) catalog.Includes {
	f := queryFlags(r)
	return catalog.Includes{Inventories: f["inventory"] || f["inventories"], Images: f["images"]}
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lq := catalog.ListQuery{
		Search:   q.Get("search"),
		Brand:    q.Get("brand"),
		Status:   catalog.Status(strings.ToUpper(q.Get("status"))),
		SortBy:   q.Get("sortBy"),
		SortDesc: sortDesc(r),
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
		Includes: productIncludes(r),
	}
	if v := q.Get("category_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, r, errInvalidID)
			return
		}
		lq.CategoryID = &id
	}
	page, err := h.Products.List(r.Context(), lq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": page})
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.CreateProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Products.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Product created", "product", p)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Products.Get(r.Context(), id, productIncludes(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "product": p})
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in catalog.UpdateProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Products.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Product updated", "product", p)
}

func (h *CatalogHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Products.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Product deleted", "", nil)
}

func (h *CatalogHandler) addImages(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	form, err := parseMultipart(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer form.close()
	files, err := form.files("images")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Products.AddImages(r.Context(), id, form.value("channel"), files)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Images uploaded", "product", p)
}

func (h *CatalogHandler) removeImage(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	imageID, err := urlID(r, "imageID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Products.RemoveImage(r.Context(), id, imageID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Image removed", "product", p)
}

type createInventoryReq struct {
	Quantity   int                        `json:"quantity"`
	Attributes []inventory.AttributeInput `json:"attributes"`
}

// createInventory adds a variant; an empty body makes an empty variant.
func (h *CatalogHandler) createInventory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createInventoryReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.Products.Get(r.Context(), id, catalog.Includes{}); err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.Inventories.Create(r.Context(), id, req.Quantity, req.Attributes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Inventory created", "inventory", inv)
}

func (h *CatalogHandler) listSlides(w http.ResponseWriter, r *http.Request) {
	slides, err := h.Slider.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "images": slides})
}

func (h *CatalogHandler) addSlides(w http.ResponseWriter, r *http.Request) {
	form, err := parseMultipart(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer form.close()
	files, err := form.files("image")
	if err != nil {
		writeError(w, r, err)
		return
	}
	slides, err := h.Slider.Add(r.Context(), form.value("channel"), files, form.value("link"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Image added", "images", slides)
}

func (h *CatalogHandler) removeSlide(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Slider.Remove(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Image removed", "", nil)
}
