package services

import (
	"context"
	"log"
	"strings"

	"aether/internal/apperr"
	"aether/internal/models"
	"aether/internal/repositories"
)

// WishlistView is the wishlist as returned to clients.
type WishlistView struct {
	Products []models.Product `json:"products"`
}

// WishlistService manages a user's saved products.
type WishlistService struct {
	wishlists repositories.WishlistRepository
	products  *ProductService
}

// NewWishlistService creates a new WishlistService.
func NewWishlistService(wishlists repositories.WishlistRepository, products *ProductService) *WishlistService {
	return &WishlistService{wishlists: wishlists, products: products}
}

func (s *WishlistService) load(ctx context.Context, userID string) (*models.Wishlist, error) {
	w, err := s.wishlists.GetByUser(ctx, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return &models.Wishlist{UserID: userID, ProductIDs: []string{}}, nil
		}
		return nil, err
	}
	return w, nil
}

// Get returns the products on the user's wishlist. Deleted products are omitted.
func (s *WishlistService) Get(ctx context.Context, userID string) (*WishlistView, error) {
	w, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, w), nil
}

// Add puts a product on the wishlist. Adding it twice has no effect.
func (s *WishlistService) Add(ctx context.Context, userID, productID string) (*WishlistView, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperr.New(apperr.ErrValidation, "Product ID is required")
	}
	if _, err := s.products.Get(ctx, productID); err != nil {
		return nil, err
	}
	w, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !w.Contains(productID) {
		w.ProductIDs = append(w.ProductIDs, productID)
		if err := s.wishlists.Save(ctx, w); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, w), nil
}

// Remove takes a product off the wishlist.
func (s *WishlistService) Remove(ctx context.Context, userID, productID string) (*WishlistView, error) {
	w, err := s.wishlists.GetByUser(ctx, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.New(apperr.ErrNotFound, "Wishlist not found")
		}
		return nil, err
	}
	if w.Remove(productID) {
		if err := s.wishlists.Save(ctx, w); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, w), nil
}

// Merge adds anonymous-session product ids to the wishlist, skipping unknown products.
func (s *WishlistService) Merge(ctx context.Context, userID string, productIDs []string) (*WishlistView, error) {
	w, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	changed := false
	for _, id := range productIDs {
		id = strings.TrimSpace(id)
		if id == "" || w.Contains(id) {
			continue
		}
		if _, err := s.products.Get(ctx, id); err != nil {
			if apperr.IsNotFound(err) {
				log.Printf("Wishlist merge for user %s skipped missing product %s", userID, id)
				continue
			}
			return nil, err
		}
		w.ProductIDs = append(w.ProductIDs, id)
		changed = true
	}
	if changed {
		if err := s.wishlists.Save(ctx, w); err != nil {
			return nil, err
		}
	}
	return s.view(ctx, w), nil
}

func (s *WishlistService) view(ctx context.Context, w *models.Wishlist) *WishlistView {
	products := make([]models.Product, 0, len(w.ProductIDs))
	for _, id := range w.ProductIDs {
		p, err := s.products.Get(ctx, id)
		if err != nil {
			continue
		}
		products = append(products, *p)
	}
	return &WishlistView{Products: products}
}
