package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"aether/internal/apperr"
	"aether/internal/events"
	"aether/internal/models"
	"aether/internal/payment"
	"aether/internal/pricing"
	"aether/internal/repositories"
	"aether/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testKeySecret = "test_secret"

// MockPublisher is a mock implementation of events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, env events.Envelope) error {
	return m.Called(ctx, env).Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

func eventOfType(eventType string) interface{} {
	return mock.MatchedBy(func(env events.Envelope) bool { return env.EventType == eventType })
}

type checkoutFixture struct {
	service   *services.CheckoutService
	gateway   *payment.FakeGateway
	signer    *payment.Signer
	orders    repositories.OrderRepository
	carts     *services.CartService
	publisher *MockPublisher
	products  []*models.Product
	user      *models.User
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	catalog, products := newCatalog(t, 1000, 250)
	cartRepo := repositories.NewMemoryCartRepository()
	f := &checkoutFixture{
		gateway:   &payment.FakeGateway{Key: "rzp_test_key"},
		signer:    payment.NewSigner(testKeySecret),
		orders:    repositories.NewMemoryOrderRepository(),
		carts:     services.NewCartService(cartRepo, catalog, pricing.DefaultRules),
		publisher: new(MockPublisher),
		products:  products,
		user:      &models.User{ID: "u1", Name: "Ana", Email: "ana@example.com"},
	}
	f.service = services.NewCheckoutService(services.CheckoutConfig{
		Orders:    f.orders,
		Carts:     cartRepo,
		Products:  catalog,
		Gateway:   f.gateway,
		Signer:    f.signer,
		Publisher: f.publisher,
		Rules:     pricing.DefaultRules,
	})
	return f
}

func shippingTo() models.Shipping {
	return models.Shipping{
		Phone:   "9999999999",
		Address: "1 Main St",
		City:    "Pune",
		Pincode: "411001",
	}
}

func TestCheckout_CreateGatewayOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	f.publisher.On("Publish", mock.Anything, eventOfType(events.OrderCreated)).Return(nil).Once()

	res, err := f.service.CreateGatewayOrder(context.Background(), f.user, services.CheckoutInput{
		Items:    []services.ItemInput{{ProductID: f.products[0].ID, Quantity: 2, Size: "M"}},
		Shipping: shippingTo(),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(236000), res.GatewayOrder.Amount)
	assert.Equal(t, "INR", res.GatewayOrder.Currency)
	assert.True(t, strings.HasPrefix(res.GatewayOrder.Receipt, "aether_"))
	assert.Equal(t, "rzp_test_key", res.Key)

	assert.Equal(t, models.PaymentPending, res.Order.PaymentStatus)
	assert.Equal(t, models.ProviderRazorpay, res.Order.PaymentProvider)
	assert.Equal(t, res.GatewayOrder.ID, res.Order.GatewayOrderID)
	assert.Equal(t, 2360.0, res.Order.Total)
	assert.Equal(t, "Ana", res.Order.Shipping.Name)
	assert.Equal(t, "ana@example.com", res.Order.Shipping.Email)
	require.Len(t, res.Order.Items, 1)
	assert.Equal(t, 1000.0, res.Order.Items[0].Price)

	stored, err := f.orders.GetByID(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
	f.publisher.AssertExpectations(t)
}

func TestCheckout_UsesServerCartWhenNoItems(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.CreateCODOrder(ctx, f.user, services.CheckoutInput{Shipping: shippingTo()})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "Cart is empty", err.Error())

	_, err = f.carts.AddItem(ctx, f.user.ID, services.ItemInput{ProductID: f.products[1].ID, Quantity: 2})
	require.NoError(t, err)

	order, err := f.service.CreateCODOrder(ctx, f.user, services.CheckoutInput{Shipping: shippingTo()})
	require.NoError(t, err)
	assert.Equal(t, models.ProviderCOD, order.PaymentProvider)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Empty(t, order.GatewayOrderID)
	// 500 subtotal pays the flat shipping fee
	assert.Equal(t, 49.0, order.ShippingFee)
	assert.Equal(t, 639.0, order.Total)
	assert.Empty(t, f.gateway.Orders)
}

func TestCheckout_RejectsBadInput(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	incomplete := shippingTo()
	incomplete.Pincode = ""
	_, err := f.service.CreateCODOrder(ctx, f.user, services.CheckoutInput{
		Items:    []services.ItemInput{{ProductID: f.products[0].ID}},
		Shipping: incomplete,
	})
	assert.Equal(t, "Shipping details are incomplete", err.Error())

	_, err = f.service.CreateCODOrder(ctx, f.user, services.CheckoutInput{
		Items:    []services.ItemInput{{ProductID: f.products[0].ID, Quantity: 50}},
		Shipping: shippingTo(),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "Insufficient stock")

	_, err = f.service.CreateCODOrder(ctx, f.user, services.CheckoutInput{
		Items:    []services.ItemInput{{ProductID: "gone"}},
		Shipping: shippingTo(),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	f.gateway.Err = apperr.ErrGateway
	_, err = f.service.CreateGatewayOrder(ctx, f.user, services.CheckoutInput{
		Items:    []services.ItemInput{{ProductID: f.products[0].ID}},
		Shipping: shippingTo(),
	})
	assert.ErrorIs(t, err, apperr.ErrGateway)

	orders, err := f.service.MyOrders(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestCheckout_VerifyPayment(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.publisher.On("Publish", mock.Anything, eventOfType(events.OrderCreated)).Return(nil)

	res, err := f.service.CreateGatewayOrder(ctx, f.user, services.CheckoutInput{
		Items:    []services.ItemInput{{ProductID: f.products[0].ID}},
		Shipping: shippingTo(),
	})
	require.NoError(t, err)

	valid := services.VerifyInput{
		GatewayOrderID: res.GatewayOrder.ID,
		PaymentID:      "pay_1",
		Signature:      f.signer.Sign(res.GatewayOrder.ID, "pay_1"),
		OrderID:        res.Order.ID,
	}

	_, err = f.service.VerifyPayment(ctx, services.VerifyInput{GatewayOrderID: valid.GatewayOrderID})
	assert.Equal(t, "Missing verification data", err.Error())

	tampered := valid
	tampered.Signature = payment.NewSigner("wrong").Sign(valid.GatewayOrderID, valid.PaymentID)
	_, err = f.service.VerifyPayment(ctx, tampered)
	assert.ErrorIs(t, err, apperr.ErrSignatureMismatch)
	stored, err := f.orders.GetByID(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)

	unknown := valid
	unknown.OrderID = "missing"
	_, err = f.service.VerifyPayment(ctx, unknown)
	assert.Equal(t, "Order not found", err.Error())

	// First verification publishes order.paid, the replay does not
	f.publisher.On("Publish", mock.Anything, eventOfType(events.OrderPaid)).Return(nil).Once()
	order, err := f.service.VerifyPayment(ctx, valid)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
	assert.Equal(t, "pay_1", order.PaymentID)

	order, err = f.service.VerifyPayment(ctx, valid)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)
	f.publisher.AssertNumberOfCalls(t, "Publish", 2)
}

func TestCheckout_VerifyRejectsForeignGatewayOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	in := services.CheckoutInput{Items: []services.ItemInput{{ProductID: f.products[1].ID}}, Shipping: shippingTo()}
	cheap, err := f.service.CreateGatewayOrder(ctx, f.user, in)
	require.NoError(t, err)
	in.Items[0].ProductID = f.products[0].ID
	dear, err := f.service.CreateGatewayOrder(ctx, f.user, in)
	require.NoError(t, err)

	// A genuine signature for the cheap order must not settle the expensive one
	_, err = f.service.VerifyPayment(ctx, services.VerifyInput{
		GatewayOrderID: cheap.GatewayOrder.ID,
		PaymentID:      "pay_2",
		Signature:      f.signer.Sign(cheap.GatewayOrder.ID, "pay_2"),
		OrderID:        dear.Order.ID,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	stored, err := f.orders.GetByID(ctx, dear.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
}

func TestCheckout_GatewayNotConfigured(t *testing.T) {
	catalog, products := newCatalog(t, 100)
	service := services.NewCheckoutService(services.CheckoutConfig{
		Orders:   repositories.NewMemoryOrderRepository(),
		Products: catalog,
		Rules:    pricing.DefaultRules,
	})
	user := &models.User{ID: "u1", Name: "Ana", Email: "ana@example.com"}

	assert.False(t, service.GatewayStatus().Configured)
	_, err := service.CreateGatewayOrder(context.Background(), user, services.CheckoutInput{
		Items:    []services.ItemInput{{ProductID: products[0].ID}},
		Shipping: shippingTo(),
	})
	assert.ErrorIs(t, err, apperr.ErrGatewayNotConfigured)

	order, err := service.CreateCODOrder(context.Background(), user, services.CheckoutInput{
		Items:    []services.ItemInput{{ProductID: products[0].ID}},
		Shipping: shippingTo(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
}

func TestCheckout_ReportFailureAndMyOrders(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.service.ReportFailure(ctx, services.FailureInput{}), apperr.ErrValidation)

	f.publisher.On("Publish", mock.Anything, eventOfType(events.PaymentFailed)).
		Return(errors.New("broker down")).Once()
	require.NoError(t, f.service.ReportFailure(ctx, services.FailureInput{
		OrderID: "o1", Code: "BAD_REQUEST_ERROR", Reason: "payment_failed",
	}))

	f.publisher.On("Publish", mock.Anything, eventOfType(events.OrderCreated)).Return(nil)
	for _, p := range f.products {
		_, err := f.service.CreateCODOrder(ctx, f.user, services.CheckoutInput{
			Items:    []services.ItemInput{{ProductID: p.ID}},
			Shipping: shippingTo(),
		})
		require.NoError(t, err)
	}
	orders, err := f.service.MyOrders(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.False(t, orders[0].CreatedAt.Before(orders[1].CreatedAt))

	none, err := f.service.MyOrders(ctx, "other")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
	f.publisher.AssertExpectations(t)
}
