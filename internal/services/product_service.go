package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"
	"time"

	"aether/internal/apperr"
	"aether/internal/cache"
	"aether/internal/models"
	"aether/internal/repositories"

	"github.com/go-playground/validator/v10"
)

// Listing defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

// ListQuery selects a page of the catalog.
type ListQuery struct {
	Category string
	Exclude  string
	Page     int
	Limit    int
}

// ProductPage is one page of a listing.
type ProductPage struct {
	Products []models.Product `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	Total    int64            `json:"total"`
}

// ProductInput is the admin payload for creating a product.
type ProductInput struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Brand       string   `json:"brand"`
	Price       float64  `json:"price"`
	Condition   string   `json:"condition"`
	Images      []string `json:"images"`
	Thumbnail   string   `json:"thumbnail"`
	Description string   `json:"description"`
	Sizes       []string `json:"sizes"`
	Stock       int      `json:"stock"`
	Badge       string   `json:"badge"`
}

// ProductUpdate is the admin payload for updating a product. Nil fields are left as is.
type ProductUpdate struct {
	Name        *string   `json:"name"`
	Category    *string   `json:"category"`
	Brand       *string   `json:"brand"`
	Price       *float64  `json:"price"`
	Condition   *string   `json:"condition"`
	Images      *[]string `json:"images"`
	Thumbnail   *string   `json:"thumbnail"`
	Description *string   `json:"description"`
	Sizes       *[]string `json:"sizes"`
	Stock       *int      `json:"stock"`
	Badge       *string   `json:"badge"`
}

// ReviewInput is a customer review submission.
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo     repositories.ProductRepository
	cache    cache.ProductCache
	validate *validator.Validate
}

// NewProductService creates a new ProductService. A nil cache disables caching.
func NewProductService(repo repositories.ProductRepository, productCache cache.ProductCache) *ProductService {
	if productCache == nil {
		productCache = cache.Nop{}
	}
	return &ProductService{
		repo:     repo,
		cache:    productCache,
		validate: models.NewValidator(),
	}
}

// List returns a page of products, newest first.
func (s *ProductService) List(ctx context.Context, q ListQuery) (*ProductPage, error) {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	products, total, err := s.repo.List(ctx, repositories.ProductFilter{
		Category: strings.TrimSpace(q.Category),
		Exclude:  q.Exclude,
		Offset:   (q.Page - 1) * q.Limit,
		Limit:    q.Limit,
	})
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return &ProductPage{
		Products: products,
		Page:     q.Page,
		Pages:    int(math.Ceil(float64(total) / float64(q.Limit))),
		Total:    total,
	}, nil
}

// Get retrieves a single product by its ID.
func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	if p, ok := s.cache.GetByID(ctx, id); ok {
		return p, nil
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, productLookupError(err)
	}
	s.cache.Set(ctx, p)
	return p, nil
}

// GetBySlug retrieves a single product by its slug.
func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	if p, ok := s.cache.GetBySlug(ctx, slug); ok {
		return p, nil
	}
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, productLookupError(err)
	}
	s.cache.Set(ctx, p)
	return p, nil
}

func productLookupError(err error) error {
	if apperr.IsNotFound(err) {
		return apperr.New(apperr.ErrNotFound, "Product not found")
	}
	return err
}

// Create validates and stores a new product with a unique slug.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		Brand:       strings.TrimSpace(in.Brand),
		Price:       in.Price,
		Condition:   in.Condition,
		Images:      cleanList(in.Images),
		Thumbnail:   strings.TrimSpace(in.Thumbnail),
		Description: in.Description,
		Sizes:       cleanList(in.Sizes),
		Stock:       in.Stock,
		Badge:       in.Badge,
		Reviews:     []models.Review{},
	}
	if p.Brand == "" {
		p.Brand = models.DefaultBrand
	}
	if p.Condition == "" {
		p.Condition = models.ConditionNew
	}
	if err := s.validate.Struct(p); err != nil {
		return nil, productValidationError(err)
	}

	slug, err := s.UniqueSlug(ctx, p.Name, "")
	if err != nil {
		return nil, err
	}
	p.Slug = slug
	p.RecomputeRating()

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	log.Printf("Product created: %s (%s)", p.Name, p.Slug)
	return p, nil
}

// Update applies a partial update. The slug is regenerated only when the name changes.
func (s *ProductService) Update(ctx context.Context, id string, in ProductUpdate) (*models.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, productLookupError(err)
	}
	previous := *p

	nameChanged := false
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		nameChanged = name != p.Name
		p.Name = name
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Brand != nil {
		p.Brand = strings.TrimSpace(*in.Brand)
		if p.Brand == "" {
			p.Brand = models.DefaultBrand
		}
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Condition != nil {
		p.Condition = *in.Condition
	}
	if in.Images != nil {
		p.Images = cleanList(*in.Images)
	}
	if in.Thumbnail != nil {
		p.Thumbnail = strings.TrimSpace(*in.Thumbnail)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Sizes != nil {
		p.Sizes = cleanList(*in.Sizes)
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Badge != nil {
		p.Badge = *in.Badge
	}
	if err := s.validate.Struct(p); err != nil {
		return nil, productValidationError(err)
	}

	if nameChanged {
		slug, err := s.UniqueSlug(ctx, p.Name, p.ID)
		if err != nil {
			return nil, err
		}
		p.Slug = slug
	}
	p.RecomputeRating()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, &previous)
	s.cache.Invalidate(ctx, p)
	return p, nil
}

// Delete deletes a product by its ID.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return productLookupError(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return productLookupError(err)
	}
	s.cache.Invalidate(ctx, p)
	return nil
}

// AddReview appends a review from user. Each user may review a product once.
func (s *ProductService) AddReview(ctx context.Context, productID string, user *models.User, in ReviewInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.New(apperr.ErrValidation, "Rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(in.Comment)
	if comment == "" {
		return nil, apperr.New(apperr.ErrValidation, "Comment is required")
	}

	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, productLookupError(err)
	}
	if p.HasReviewFrom(user.ID) {
		return nil, apperr.New(apperr.ErrConflict, "You have already reviewed this product")
	}

	review := models.Review{
		UserID:    user.ID,
		Name:      user.Name,
		Rating:    in.Rating,
		Comment:   comment,
		CreatedAt: time.Now(),
	}
	p.Reviews = append(p.Reviews, review)
	p.RecomputeRating()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, p)
	return &review, nil
}

// Reviews returns the reviews embedded in a product.
func (s *ProductService) Reviews(ctx context.Context, productID string) ([]models.Review, error) {
	p, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Reviews == nil {
		return []models.Review{}, nil
	}
	return p.Reviews, nil
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name, joins words with hyphens and drops everything that is not a
// letter or digit.
func Slugify(name string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "product"
	}
	return s
}

// UniqueSlug returns Slugify(name), suffixed with -1, -2, ... until no product other
// than excludeID uses it.
func (s *ProductService) UniqueSlug(ctx context.Context, name, excludeID string) (string, error) {
	base := Slugify(name)
	candidate := base
	for i := 1; ; i++ {
		exists, err := s.repo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// productValidationError turns the first failed field into the message shown to admins.
func productValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.New(apperr.ErrValidation, "Invalid product data")
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Name":
		if fe.Tag() == "max" {
			return apperr.New(apperr.ErrValidation, "Name cannot exceed 200 characters")
		}
		return apperr.New(apperr.ErrValidation, "Name is required")
	case "Category":
		if fe.Tag() == "category" {
			return apperr.New(apperr.ErrValidation, fmt.Sprintf("Category must be one of: %s", strings.Join(models.Categories, ", ")))
		}
		return apperr.New(apperr.ErrValidation, "Category is required")
	case "Price":
		return apperr.New(apperr.ErrValidation, "Price must be greater than 0")
	case "Condition":
		return apperr.New(apperr.ErrValidation, "Condition must be New or Used")
	case "Images":
		return apperr.New(apperr.ErrValidation, "At least one image URL must be provided")
	case "Thumbnail":
		return apperr.New(apperr.ErrValidation, "Thumbnail image is required")
	case "Description":
		return apperr.New(apperr.ErrValidation, "Description cannot exceed 5000 characters")
	case "Stock":
		return apperr.New(apperr.ErrValidation, "Stock cannot be negative")
	}
	return apperr.New(apperr.ErrValidation, "Invalid product data")
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
