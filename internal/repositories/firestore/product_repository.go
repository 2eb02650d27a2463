package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/shiny-beauty/api/internal/domain"
	pfirestore "github.com/shiny-beauty/api/internal/platform/firestore"
	"github.com/shiny-beauty/api/internal/platform/textutil"
	"github.com/shiny-beauty/api/internal/repositories"
)

const productsCollection = "products"

// ProductRepository persists catalog products.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil)
	return &ProductRepository{base: base}, nil
}

// Insert stores a new product document. The ID must be unique.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		return errors.New("product repository: product id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, productID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeProductDocument(product)); err != nil {
		return pfirestore.WrapError("products.insert", err)
	}
	return nil
}

// Update replaces the persisted product state with the provided snapshot.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		return errors.New("product repository: product id is required")
	}
	if _, err := r.base.Set(ctx, productID, encodeProductDocument(product)); err != nil {
		return err
	}
	return nil
}

// FindByID fetches a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}
	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProductDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// FindBySlug fetches the product carrying the given URL slug.
func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Product{}, errors.New("product repository: slug is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", slug).Limit(1)
	})
	if err != nil {
		return domain.Product{}, err
	}
	if len(docs) == 0 {
		return domain.Product{}, pfirestore.NotFoundError("products.find_by_slug", slug)
	}
	doc := docs[0]
	return decodeProductDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// List returns products ordered by creation time, newest first.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
	}

	limit := filter.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Product]{}, fmt.Errorf("product repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	categoryID := strings.TrimSpace(filter.CategoryID)
	brand := textutil.Fold(filter.Brand)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if categoryID != "" {
			q = q.Where("categoryIds", "array-contains", categoryID)
		}
		if brand != "" {
			q = q.Where("brandKey", "==", brand)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Product]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		product := decodeProductDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime)
		if search := textutil.Fold(filter.Search); search != "" && !strings.Contains(textutil.Fold(product.Name), search) {
			continue
		}
		items = append(items, product)
	}

	return domain.CursorPage[domain.Product]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

type productDocument struct {
	Name          string              `firestore:"name"`
	Slug          string              `firestore:"slug"`
	Brand         string              `firestore:"brand"`
	BrandKey      string              `firestore:"brandKey"`
	Description   string              `firestore:"description"`
	Price         int64               `firestore:"price"`
	OriginalPrice *int64              `firestore:"originalPrice,omitempty"`
	SalePrice     *int64              `firestore:"salePrice,omitempty"`
	SaleActive    bool                `firestore:"isSaleActive"`
	SaleProgramID string              `firestore:"saleProgramId,omitempty"`
	FreeShipping  bool                `firestore:"freeShipping"`
	Categories    []categoryDocument  `firestore:"category"`
	CategoryIDs   []string            `firestore:"categoryIds"`
	CountInStock  int                 `firestore:"countInStock"`
	Images        []string            `firestore:"images"`
	CreatedAt     time.Time           `firestore:"createdAt"`
	UpdatedAt     time.Time           `firestore:"updatedAt"`
}

type categoryDocument struct {
	ID   string `firestore:"id"`
	Name string `firestore:"name"`
	Slug string `firestore:"slug,omitempty"`
}

func encodeProductDocument(product domain.Product) productDocument {
	doc := productDocument{
		Name:          strings.TrimSpace(product.Name),
		Slug:          strings.TrimSpace(product.Slug),
		Brand:         strings.TrimSpace(product.Brand),
		BrandKey:      textutil.Fold(product.Brand),
		Description:   strings.TrimSpace(product.Description),
		Price:         product.Price,
		OriginalPrice: product.OriginalPrice,
		SalePrice:     product.SalePrice,
		SaleActive:    product.SaleActive,
		SaleProgramID: strings.TrimSpace(product.SaleProgramID),
		FreeShipping:  product.FreeShipping,
		CategoryIDs:   product.CategoryIDs(),
		CountInStock:  product.CountInStock,
		Images:        cloneStrings(product.Images),
		CreatedAt:     product.CreatedAt.UTC(),
		UpdatedAt:     product.UpdatedAt.UTC(),
	}
	for _, category := range product.Categories {
		doc.Categories = append(doc.Categories, categoryDocument{
			ID:   strings.TrimSpace(category.ID),
			Name: strings.TrimSpace(category.Name),
			Slug: strings.TrimSpace(category.Slug),
		})
	}
	return doc
}

func decodeProductDocument(id string, doc productDocument, createTime, updateTime time.Time) domain.Product {
	product := domain.Product{
		ID:            id,
		Name:          doc.Name,
		Slug:          doc.Slug,
		Brand:         doc.Brand,
		Description:   doc.Description,
		Price:         doc.Price,
		OriginalPrice: doc.OriginalPrice,
		SalePrice:     doc.SalePrice,
		SaleActive:    doc.SaleActive,
		SaleProgramID: doc.SaleProgramID,
		FreeShipping:  doc.FreeShipping,
		CountInStock:  doc.CountInStock,
		Images:        cloneStrings(doc.Images),
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = createTime
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = updateTime
	}
	for _, category := range doc.Categories {
		product.Categories = append(product.Categories, domain.CategoryRef{
			ID:   category.ID,
			Name: category.Name,
			Slug: category.Slug,
		})
	}
	return product
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
