// Package cartsync keeps a shopper's cart and wishlist consistent across anonymous and
// signed-in sessions. Anonymous state lives in a LocalStore; once signed in, the API is
// authoritative and every server response replaces the in-memory lists.
package cartsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"aether/internal/pricing"
	"aether/pkg/storefront"
)

var (
	// ErrInvalidItem is returned for an item without a product id.
	ErrInvalidItem = errors.New("cartsync: product id is required")
	// ErrUnknownLine is returned when a line id is not in the cart.
	ErrUnknownLine = errors.New("cartsync: unknown cart line")
	// ErrNoToken is returned by SignIn for an empty session.
	ErrNoToken = errors.New("cartsync: session has no token")
)

// Item is a cart line. Signed-in lines carry the server's line id; anonymous lines are
// keyed by product id and size.
type Item struct {
	LineID    string  `yaml:"lineId"`
	ProductID string  `yaml:"productId"`
	Name      string  `yaml:"name"`
	Price     float64 `yaml:"price"`
	Quantity  int     `yaml:"quantity"`
	Size      string  `yaml:"size,omitempty"`
}

// WishItem is a saved product.
type WishItem struct {
	ProductID string  `yaml:"productId"`
	Name      string  `yaml:"name"`
	Price     float64 `yaml:"price"`
}

// Remote is the authoritative store used once signed in. *storefront.Client implements it.
type Remote interface {
	Cart(ctx context.Context, s storefront.Session) (*storefront.Cart, error)
	AddToCart(ctx context.Context, s storefront.Session, item storefront.ItemInput) (*storefront.Cart, error)
	UpdateCartItem(ctx context.Context, s storefront.Session, lineID string, quantity int) (*storefront.Cart, error)
	RemoveCartItem(ctx context.Context, s storefront.Session, lineID string) (*storefront.Cart, error)
	ClearCart(ctx context.Context, s storefront.Session) (*storefront.Cart, error)
	MergeCart(ctx context.Context, s storefront.Session, items []storefront.ItemInput) (*storefront.Cart, error)
	Wishlist(ctx context.Context, s storefront.Session) (*storefront.Wishlist, error)
	AddToWishlist(ctx context.Context, s storefront.Session, productID string) (*storefront.Wishlist, error)
	RemoveFromWishlist(ctx context.Context, s storefront.Session, productID string) (*storefront.Wishlist, error)
	MergeWishlist(ctx context.Context, s storefront.Session, productIDs []string) (*storefront.Wishlist, error)
}

var _ Remote = (*storefront.Client)(nil)

// Policy decides what happens to anonymous items at sign-in.
type Policy int

const (
	// PolicyReplace discards the anonymous lists from view in favour of the account's.
	// They stay in the LocalStore and return after SignOut.
	PolicyReplace Policy = iota
	// PolicyMerge uploads the anonymous lists into the account, summing quantities of
	// matching product and size, then empties the LocalStore.
	PolicyMerge
)

// Reconciler owns the in-memory cart and wishlist. Signed-in mutations change the lists
// under the lock, then release it for the request, so readers see the optimistic state
// while the server is working. Each list carries a generation bumped by every change;
// a response is applied only if its generation is still current.
type Reconciler struct {
	mu       sync.Mutex
	remote   Remote
	local    LocalStore
	rules    pricing.Rules
	session  *storefront.Session
	cart     []Item
	wishlist []WishItem
	cartGen  uint64
	wishGen  uint64
}

// New returns an anonymous Reconciler seeded from local.
func New(remote Remote, local LocalStore, rules pricing.Rules) (*Reconciler, error) {
	snap, err := local.Load()
	if err != nil {
		return nil, err
	}
	return &Reconciler{
		remote:   remote,
		local:    local,
		rules:    rules,
		cart:     snap.Cart,
		wishlist: snap.Wishlist,
	}, nil
}

// Authenticated reports whether a session is active.
func (r *Reconciler) Authenticated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}

// Items returns a copy of the cart.
func (r *Reconciler) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Item(nil), r.cart...)
}

// Wishlist returns a copy of the wishlist.
func (r *Reconciler) Wishlist() []WishItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]WishItem(nil), r.wishlist...)
}

// Summary prices the current cart.
func (r *Reconciler) Summary() pricing.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]pricing.Line, 0, len(r.cart))
	for _, it := range r.cart {
		lines = append(lines, pricing.Line{Price: it.Price, Quantity: it.Quantity})
	}
	return r.rules.Compute(lines)
}

// SignIn switches to the account behind s. The account's lists replace the in-memory
// ones; with PolicyMerge the anonymous lists are uploaded first.
//
// The wishlist merge is a set union and safe to repeat, so it runs first. The cart merge
// sums quantities and runs last: if it fails nothing has changed and SignIn can be
// retried. Once it succeeds the session is established even if clearing the LocalStore
// fails; that error is returned with the reconciler already signed in.
func (r *Reconciler) SignIn(ctx context.Context, s storefront.Session, policy Policy) error {
	if s.Token == "" {
		return ErrNoToken
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	mergeWish := policy == PolicyMerge && len(r.wishlist) > 0
	mergeCart := policy == PolicyMerge && len(r.cart) > 0

	var (
		wish *storefront.Wishlist
		cart *storefront.Cart
		err  error
	)
	if mergeWish {
		wish, err = r.remote.MergeWishlist(ctx, s, wishIDs(r.wishlist))
	} else {
		wish, err = r.remote.Wishlist(ctx, s)
	}
	if err != nil {
		return err
	}
	if mergeCart {
		cart, err = r.remote.MergeCart(ctx, s, toInputs(r.cart))
	} else {
		cart, err = r.remote.Cart(ctx, s)
	}
	if err != nil {
		return err
	}

	r.session = &s
	r.cart = fromRemoteCart(cart)
	r.wishlist = fromRemoteWishlist(wish)
	r.cartGen++
	r.wishGen++

	if mergeWish || mergeCart {
		// The lists are on the server now; never upload them twice.
		if err := r.local.Save(Snapshot{}); err != nil {
			return fmt.Errorf("cartsync: signed in but local lists not cleared: %w", err)
		}
	}
	return nil
}

// SignOut drops the session and shows the anonymous lists again. Responses to requests
// still in flight are discarded.
func (r *Reconciler) SignOut() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, err := r.local.Load()
	if err != nil {
		return err
	}
	r.session = nil
	r.cart = snap.Cart
	r.wishlist = snap.Wishlist
	r.cartGen++
	r.wishGen++
	return nil
}

// Refetch replaces both lists with authoritative state: the server's when signed in,
// the LocalStore's otherwise.
func (r *Reconciler) Refetch(ctx context.Context) error {
	r.mu.Lock()
	if r.session == nil {
		defer r.mu.Unlock()
		snap, err := r.local.Load()
		if err != nil {
			return err
		}
		r.cart, r.wishlist = snap.Cart, snap.Wishlist
		r.cartGen++
		r.wishGen++
		return nil
	}
	s := *r.session
	r.cartGen++
	r.wishGen++
	cartGen, wishGen := r.cartGen, r.wishGen
	r.mu.Unlock()

	cart, err := r.remote.Cart(ctx, s)
	if err != nil {
		return err
	}
	wish, err := r.remote.Wishlist(ctx, s)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cartGen == cartGen {
		r.cart = fromRemoteCart(cart)
	}
	if r.wishGen == wishGen {
		r.wishlist = fromRemoteWishlist(wish)
	}
	return nil
}

// AddItem adds quantity of a product, incrementing the line with the same product and
// size. Signed in, the server performs the match and its list replaces the local one.
func (r *Reconciler) AddItem(ctx context.Context, in Item) (*Mutation, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.Size = strings.TrimSpace(in.Size)
	if in.ProductID == "" {
		return nil, ErrInvalidItem
	}
	if in.Quantity < 1 {
		in.Quantity = 1
	}

	r.mu.Lock()
	m := newMutation(OpAdd, in.ProductID)
	before := r.cloneCart()
	if r.session == nil {
		defer r.mu.Unlock()
		upsertLocal(&r.cart, in)
		return m, r.persist(m, before, r.wishlist)
	}
	// The server assigns line ids, so the add is not applied before it answers.
	s, gen := r.beginCart()
	r.mu.Unlock()

	return m, r.settleCart(ctx, m, s, gen, before, func(ctx context.Context) (*storefront.Cart, error) {
		return r.remote.AddToCart(ctx, s, storefront.ItemInput{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Size:      in.Size,
		})
	})
}

// RemoveItem drops a line immediately, then confirms with the server. A failed request
// rolls back by refetching the server's cart.
func (r *Reconciler) RemoveItem(ctx context.Context, lineID string) (*Mutation, error) {
	r.mu.Lock()
	m := newMutation(OpRemove, lineID)
	before := r.cloneCart()
	if i := r.find(lineID); i >= 0 {
		r.cart = append(r.cart[:i:i], r.cart[i+1:]...)
	}
	if r.session == nil {
		defer r.mu.Unlock()
		return m, r.persist(m, before, r.wishlist)
	}
	s, gen := r.beginCart()
	r.mu.Unlock()

	return m, r.settleCart(ctx, m, s, gen, before, func(ctx context.Context) (*storefront.Cart, error) {
		return r.remote.RemoveCartItem(ctx, s, lineID)
	})
}

// UpdateQuantity sets a line's quantity, floored at 1, with the same optimistic
// update and rollback as RemoveItem.
func (r *Reconciler) UpdateQuantity(ctx context.Context, lineID string, quantity int) (*Mutation, error) {
	if quantity < 1 {
		quantity = 1
	}
	r.mu.Lock()
	i := r.find(lineID)
	if i < 0 {
		r.mu.Unlock()
		return nil, ErrUnknownLine
	}
	m := newMutation(OpUpdateQuantity, lineID)
	before := r.cloneCart()
	r.cart[i].Quantity = quantity
	if r.session == nil {
		defer r.mu.Unlock()
		return m, r.persist(m, before, r.wishlist)
	}
	s, gen := r.beginCart()
	r.mu.Unlock()

	return m, r.settleCart(ctx, m, s, gen, before, func(ctx context.Context) (*storefront.Cart, error) {
		return r.remote.UpdateCartItem(ctx, s, lineID, quantity)
	})
}

// Clear empties the cart immediately, then confirms with the server.
func (r *Reconciler) Clear(ctx context.Context) (*Mutation, error) {
	r.mu.Lock()
	m := newMutation(OpClear, "")
	before := r.cloneCart()
	r.cart = nil
	if r.session == nil {
		defer r.mu.Unlock()
		return m, r.persist(m, before, r.wishlist)
	}
	s, gen := r.beginCart()
	r.mu.Unlock()

	return m, r.settleCart(ctx, m, s, gen, before, func(ctx context.Context) (*storefront.Cart, error) {
		return r.remote.ClearCart(ctx, s)
	})
}

// AddToWishlist saves a product. Saving it twice has no effect.
func (r *Reconciler) AddToWishlist(ctx context.Context, item WishItem) (*Mutation, error) {
	item.ProductID = strings.TrimSpace(item.ProductID)
	if item.ProductID == "" {
		return nil, ErrInvalidItem
	}
	r.mu.Lock()
	m := newMutation(OpWishlistAdd, item.ProductID)
	before := append([]WishItem(nil), r.wishlist...)
	if wishIndex(r.wishlist, item.ProductID) < 0 {
		r.wishlist = append(r.wishlist, item)
	}
	if r.session == nil {
		defer r.mu.Unlock()
		return m, r.persist(m, r.cart, before)
	}
	s, gen := r.beginWishlist()
	r.mu.Unlock()

	return m, r.settleWishlist(ctx, m, s, gen, before, func(ctx context.Context) (*storefront.Wishlist, error) {
		return r.remote.AddToWishlist(ctx, s, item.ProductID)
	})
}

// RemoveFromWishlist unsaves a product immediately, then confirms with the server.
func (r *Reconciler) RemoveFromWishlist(ctx context.Context, productID string) (*Mutation, error) {
	r.mu.Lock()
	m := newMutation(OpWishlistRemove, productID)
	before := append([]WishItem(nil), r.wishlist...)
	if i := wishIndex(r.wishlist, productID); i >= 0 {
		r.wishlist = append(r.wishlist[:i:i], r.wishlist[i+1:]...)
	}
	if r.session == nil {
		defer r.mu.Unlock()
		return m, r.persist(m, r.cart, before)
	}
	s, gen := r.beginWishlist()
	r.mu.Unlock()

	return m, r.settleWishlist(ctx, m, s, gen, before, func(ctx context.Context) (*storefront.Wishlist, error) {
		return r.remote.RemoveFromWishlist(ctx, s, productID)
	})
}

// persist saves the anonymous lists. A failed save restores the lists given.
// The caller holds the lock.
func (r *Reconciler) persist(m *Mutation, cartBefore []Item, wishBefore []WishItem) error {
	if err := r.local.Save(Snapshot{Cart: r.cart, Wishlist: r.wishlist}); err != nil {
		r.cart = cartBefore
		r.wishlist = wishBefore
		m.rollback(err, nil)
		return err
	}
	m.commit()
	return nil
}

// beginCart claims a new cart generation. The caller holds the lock.
func (r *Reconciler) beginCart() (storefront.Session, uint64) {
	r.cartGen++
	return *r.session, r.cartGen
}

func (r *Reconciler) beginWishlist() (storefront.Session, uint64) {
	r.wishGen++
	return *r.session, r.wishGen
}

// settleCart runs call without the lock and applies the outcome. On failure the
// compensating action is a refetch of the server's cart; if that fails too, the
// pre-mutation list is restored. Either way the outcome only lands if no later change
// has claimed the cart in the meantime.
func (r *Reconciler) settleCart(ctx context.Context, m *Mutation, s storefront.Session, gen uint64, before []Item,
	call func(ctx context.Context) (*storefront.Cart, error)) error {
	cart, err := call(ctx)
	var refetchErr error
	if err != nil {
		cart, refetchErr = r.remote.Cart(ctx, s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.cartGen == gen
	switch {
	case err == nil:
		if current {
			r.cart = fromRemoteCart(cart)
		}
		m.commit()
		return nil
	case refetchErr == nil:
		if current {
			r.cart = fromRemoteCart(cart)
		}
	default:
		if current {
			r.cart = before
		}
	}
	m.rollback(err, refetchErr)
	return err
}

func (r *Reconciler) settleWishlist(ctx context.Context, m *Mutation, s storefront.Session, gen uint64, before []WishItem,
	call func(ctx context.Context) (*storefront.Wishlist, error)) error {
	wish, err := call(ctx)
	var refetchErr error
	if err != nil {
		wish, refetchErr = r.remote.Wishlist(ctx, s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.wishGen == gen
	switch {
	case err == nil:
		if current {
			r.wishlist = fromRemoteWishlist(wish)
		}
		m.commit()
		return nil
	case refetchErr == nil:
		if current {
			r.wishlist = fromRemoteWishlist(wish)
		}
	default:
		if current {
			r.wishlist = before
		}
	}
	m.rollback(err, refetchErr)
	return err
}

func (r *Reconciler) find(lineID string) int {
	for i := range r.cart {
		if r.cart[i].LineID == lineID {
			return i
		}
	}
	return -1
}

func (r *Reconciler) cloneCart() []Item {
	return append([]Item(nil), r.cart...)
}

func localKey(productID, size string) string {
	return productID + "|" + size
}

func upsertLocal(cart *[]Item, in Item) {
	for i := range *cart {
		if (*cart)[i].ProductID == in.ProductID && (*cart)[i].Size == in.Size {
			(*cart)[i].Quantity += in.Quantity
			return
		}
	}
	in.LineID = localKey(in.ProductID, in.Size)
	*cart = append(*cart, in)
}

func wishIndex(list []WishItem, productID string) int {
	for i := range list {
		if list[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func toInputs(items []Item) []storefront.ItemInput {
	out := make([]storefront.ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, storefront.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity, Size: it.Size})
	}
	return out
}

func wishIDs(list []WishItem) []string {
	out := make([]string, 0, len(list))
	for _, w := range list {
		out = append(out, w.ProductID)
	}
	return out
}

func fromRemoteCart(cart *storefront.Cart) []Item {
	if cart == nil {
		return nil
	}
	out := make([]Item, 0, len(cart.Items))
	for _, line := range cart.Items {
		it := Item{LineID: line.ID, ProductID: line.ProductID, Quantity: line.Quantity, Size: line.Size}
		if line.Product != nil {
			it.Name = line.Product.Name
			it.Price = line.Product.Price
		}
		out = append(out, it)
	}
	return out
}

func fromRemoteWishlist(w *storefront.Wishlist) []WishItem {
	if w == nil {
		return nil
	}
	out := make([]WishItem, 0, len(w.Products))
	for _, p := range w.Products {
		out = append(out, WishItem{ProductID: p.ID, Name: p.Name, Price: p.Price})
	}
	return out
}
