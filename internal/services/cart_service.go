package services

import (
	"context"
	"log"
	"strings"

	"aether/internal/apperr"
	"aether/internal/models"
	"aether/internal/pricing"
	"aether/internal/repositories"

	"github.com/google/uuid"
)

// ItemInput identifies a product line to add or merge.
type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
}

// ProductSnapshot is the catalog data shown next to a cart line.
type ProductSnapshot struct {
	ID        string  `json:"_id"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	Price     float64 `json:"price"`
	Thumbnail string  `json:"thumbnail"`
	Stock     int     `json:"stock"`
}

// CartLine is a cart item joined with its product.
type CartLine struct {
	ID        string           `json:"_id"`
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Size      string           `json:"size"`
	Product   *ProductSnapshot `json:"product"`
	Available bool             `json:"available"`
	Message   string           `json:"message,omitempty"`
}

// CartView is the cart as returned to clients.
type CartView struct {
	Items   []CartLine      `json:"items"`
	Summary pricing.Summary `json:"summary"`
}

// CartService manages the server-side cart of an authenticated user.
type CartService struct {
	carts    repositories.CartRepository
	products *ProductService
	rules    pricing.Rules
}

// NewCartService creates a new CartService.
func NewCartService(carts repositories.CartRepository, products *ProductService, rules pricing.Rules) *CartService {
	return &CartService{carts: carts, products: products, rules: rules}
}

func (s *CartService) load(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
		}
		return nil, err
	}
	return cart, nil
}

func (s *CartService) existing(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.New(apperr.ErrNotFound, "Cart not found")
		}
		return nil, err
	}
	return cart, nil
}

// Get returns the user's cart. A user without a cart has an empty one.
func (s *CartService) Get(ctx context.Context, userID string) (*CartView, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart), nil
}

// AddItem adds quantity of a product. A line with the same product and size is
// incremented instead of duplicated.
func (s *CartService) AddItem(ctx context.Context, userID string, in ItemInput) (*CartView, error) {
	in, err := normalizeItem(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.products.Get(ctx, in.ProductID); err != nil {
		return nil, err
	}

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	upsertLine(cart, in)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(ctx, cart), nil
}

// UpdateItem sets the quantity of a line.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, apperr.New(apperr.ErrValidation, "Quantity must be a positive number")
	}
	cart, err := s.existing(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := cart.FindItem(itemID)
	if i < 0 {
		return nil, apperr.New(apperr.ErrNotFound, "Item not found")
	}
	cart.Items[i].Quantity = quantity
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(ctx, cart), nil
}

// RemoveItem drops a line. Removing an unknown line is not an error.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*CartView, error) {
	cart, err := s.existing(ctx, userID)
	if err != nil {
		return nil, err
	}
	if i := cart.FindItem(itemID); i >= 0 {
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		if err := s.carts.Save(ctx, cart); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, cart), nil
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, userID string) (*CartView, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) > 0 {
		cart.Items = []models.CartItem{}
		if err := s.carts.Save(ctx, cart); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, cart), nil
}

// Merge folds anonymous-session items into the user's cart, summing quantities of lines
// with the same product and size. Items whose product no longer exists are skipped.
func (s *CartService) Merge(ctx context.Context, userID string, items []ItemInput) (*CartView, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	changed := false
	for _, raw := range items {
		in, err := normalizeItem(raw)
		if err != nil {
			return nil, err
		}
		if _, err := s.products.Get(ctx, in.ProductID); err != nil {
			if apperr.IsNotFound(err) {
				log.Printf("Cart merge for user %s skipped missing product %s", userID, in.ProductID)
				continue
			}
			return nil, err
		}
		upsertLine(cart, in)
		changed = true
	}
	if changed {
		if err := s.carts.Save(ctx, cart); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, cart), nil
}

func normalizeItem(in ItemInput) (ItemInput, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.Size = strings.TrimSpace(in.Size)
	if in.ProductID == "" {
		return in, apperr.New(apperr.ErrValidation, "Product ID is required")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 {
		return in, apperr.New(apperr.ErrValidation, "Quantity must be a positive number")
	}
	return in, nil
}

func upsertLine(cart *models.Cart, in ItemInput) {
	if i := cart.FindLine(in.ProductID, in.Size); i >= 0 {
		cart.Items[i].Quantity += in.Quantity
		return
	}
	cart.Items = append(cart.Items, models.CartItem{
		ID:        uuid.New().String(),
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		Size:      in.Size,
	})
}

// view joins lines with the catalog and prices them. Products that have been removed
// stay in the list, priced at zero, so the client can show and remove them.
func (s *CartService) view(ctx context.Context, cart *models.Cart) *CartView {
	lines := make([]CartLine, 0, len(cart.Items))
	priced := make([]pricing.Line, 0, len(cart.Items))
	for _, it := range cart.Items {
		line := CartLine{ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity, Size: it.Size}
		p, err := s.products.Get(ctx, it.ProductID)
		if err != nil {
			line.Message = "Product no longer available"
		} else {
			line.Available = true
			line.Product = &ProductSnapshot{
				ID:        p.ID,
				Name:      p.Name,
				Slug:      p.Slug,
				Price:     p.Price,
				Thumbnail: p.Thumbnail,
				Stock:     p.Stock,
			}
			priced = append(priced, pricing.Line{Price: p.Price, Quantity: it.Quantity})
		}
		lines = append(lines, line)
	}
	return &CartView{Items: lines, Summary: s.rules.Compute(priced)}
}
