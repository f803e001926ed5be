package checkout

import (
	"context"
	"testing"

	"github.com/fjod/go_checkout/domain"
	"github.com/fjod/go_checkout/internal/cart"
	"github.com/fjod/go_checkout/internal/journal"
	"github.com/fjod/go_checkout/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(port *MockPort) (*Service, *cart.Aggregate) {
	agg := cart.NewAggregate("session-1", nil)
	svc := NewService(domain.NewDraft("session-1", "idem-key-1"), Deps{
		Cart:    agg,
		Port:    port,
		Journal: journal.NewMemoryJournal(),
		Drafts:  store.NewMemoryStore(),
	})
	return svc, agg
}

func fillValidShipping(t *testing.T, svc *Service) {
	t.Helper()
	fields := map[string]string{
		domain.FieldEmail:      "jane@example.com",
		domain.FieldPhone:      "5551234567",
		domain.FieldFirstName:  "Jane",
		domain.FieldLastName:   "Doe",
		domain.FieldAddress:    "1 Main St",
		domain.FieldCity:       "Springfield",
		domain.FieldState:      "IL",
		domain.FieldCountry:    "US",
		domain.FieldPostalCode: "62701",
	}
	for name, value := range fields {
		require.NoError(t, svc.SetField(domain.StepShipping, name, value))
	}
}

func addTestItem(svc *Service, id string, price int64, qty int) {
	svc.AddItem(domain.LineItem{ID: id, Name: "item-" + id, UnitPrice: decimal.NewFromInt(price), InStock: true}, qty)
}

func TestAdvanceShipping_ValidMovesToPayment(t *testing.T) {
	svc, _ := newTestService(&MockPort{})
	addTestItem(svc, "p1", 100, 2)
	fillValidShipping(t, svc)

	err := svc.Advance(context.Background(), domain.StepShipping)
	require.NoError(t, err)
	assert.Equal(t, domain.StepPayment, svc.State().Step)
}

func TestAdvanceShipping_InvalidStaysOnShipping(t *testing.T) {
	svc, _ := newTestService(&MockPort{})
	require.NoError(t, svc.SetField(domain.StepShipping, domain.FieldEmail, "not-an-email"))

	err := svc.Advance(context.Background(), domain.StepShipping)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, domain.StepShipping, vErr.Step)
	assert.NotEmpty(t, vErr.Fields)

	state := svc.State()
	assert.Equal(t, domain.StepShipping, state.Step)
	assert.NotEmpty(t, state.FieldErrors)
}

func TestAdvance_DuplicateCommandIsNoOp(t *testing.T) {
	port := &MockPort{}
	svc, _ := newTestService(port)
	addTestItem(svc, "p1", 100, 1)
	fillValidShipping(t, svc)

	require.NoError(t, svc.Advance(context.Background(), domain.StepShipping))
	before := svc.State()

	// the duplicated command names a step the draft already left
	require.NoError(t, svc.Advance(context.Background(), domain.StepShipping))

	after := svc.State()
	assert.Equal(t, before.Step, after.Step)
	assert.Equal(t, before.Shipping, after.Shipping)
	assert.Equal(t, 0, port.CallCount())
}

func TestAdvance_FromConfirmationRejected(t *testing.T) {
	port := &MockPort{Results: []*domain.SubmissionResult{domain.SubmissionSuccess("ORD-1")}}
	svc, _ := newTestService(port)
	addTestItem(svc, "p1", 100, 1)
	fillValidShipping(t, svc)
	require.NoError(t, svc.SetField(domain.StepPayment, domain.FieldPaymentMethod, string(domain.PaymentMethodCashOnDelivery)))

	ctx := context.Background()
	require.NoError(t, svc.Advance(ctx, domain.StepShipping))
	require.NoError(t, svc.Advance(ctx, domain.StepPayment))
	require.Equal(t, domain.StepConfirmation, svc.State().Step)

	err := svc.Advance(ctx, domain.StepConfirmation)
	assert.ErrorIs(t, err, IllegalTransitionError)
}

func TestRetreat_StepsBack(t *testing.T) {
	svc, _ := newTestService(&MockPort{})
	addTestItem(svc, "p1", 100, 1)
	fillValidShipping(t, svc)
	require.NoError(t, svc.Advance(context.Background(), domain.StepShipping))

	require.NoError(t, svc.Retreat())
	state := svc.State()
	assert.Equal(t, domain.StepShipping, state.Step)
	// draft fields persist across retreat
	assert.Equal(t, "jane@example.com", state.Shipping.Email)
}

func TestRetreat_FromShippingRejected(t *testing.T) {
	svc, _ := newTestService(&MockPort{})
	err := svc.Retreat()
	assert.ErrorIs(t, err, IllegalTransitionError)
}

func TestSetField_UnknownFieldRejected(t *testing.T) {
	svc, _ := newTestService(&MockPort{})
	err := svc.SetField(domain.StepShipping, "favorite_color", "green")
	assert.Error(t, err)
}

func TestSetField_ConfirmationHasNoFields(t *testing.T) {
	svc, _ := newTestService(&MockPort{})
	err := svc.SetField(domain.StepConfirmation, domain.FieldEmail, "x@y.z")
	assert.Error(t, err)
}

func TestReset_ReturnsToEmptyShippingDraft(t *testing.T) {
	svc, _ := newTestService(&MockPort{})
	addTestItem(svc, "p1", 100, 1)
	fillValidShipping(t, svc)
	require.NoError(t, svc.Advance(context.Background(), domain.StepShipping))
	keyBefore := svc.IdempotencyKey()

	svc.Reset()

	state := svc.State()
	assert.Equal(t, domain.StepShipping, state.Step)
	assert.Empty(t, state.Shipping.Email)
	assert.Equal(t, domain.SubmissionStatusIdle, state.Status)
	assert.NotEqual(t, keyBefore, svc.IdempotencyKey(), "reset starts a new order intent with a new idempotency key")
}

func TestSummary_TracksCartMutations(t *testing.T) {
	svc, _ := newTestService(&MockPort{})
	addTestItem(svc, "p1", 100, 2)

	state := svc.State()
	assert.True(t, state.Summary.Subtotal.Equal(decimal.NewFromInt(200)), "subtotal = %s", state.Summary.Subtotal)
	assert.True(t, state.Summary.Total.Equal(decimal.NewFromInt(200)))

	require.NoError(t, svc.UpdateQuantity("p1", 3))
	state = svc.State()
	assert.True(t, state.Summary.Total.Equal(decimal.NewFromInt(300)))

	svc.RemoveItem("p1")
	state = svc.State()
	assert.True(t, state.Summary.Total.IsZero())
}

func TestStaleTotal_InvalidatesPaymentReadiness(t *testing.T) {
	port := &MockPort{Results: []*domain.SubmissionResult{domain.SubmissionSuccess("ORD-1")}}
	svc, _ := newTestService(port)
	addTestItem(svc, "p1", 100, 2)
	fillValidShipping(t, svc)
	require.NoError(t, svc.SetField(domain.StepPayment, domain.FieldPaymentMethod, string(domain.PaymentMethodCashOnDelivery)))

	ctx := context.Background()
	require.NoError(t, svc.Advance(ctx, domain.StepShipping))

	// a cart panel beside the checkout changes the total
	require.NoError(t, svc.UpdateQuantity("p1", 1))
	assert.True(t, svc.State().StaleTotal)

	err := svc.Advance(ctx, domain.StepPayment)
	assert.ErrorIs(t, err, ErrStaleTotal)
	assert.Equal(t, 0, port.CallCount(), "no submission on a stale total")
	assert.False(t, svc.State().StaleTotal, "summary refreshed for re-confirmation")

	// the user confirmed the refreshed summary, submission proceeds
	require.NoError(t, svc.Advance(ctx, domain.StepPayment))
	assert.Equal(t, domain.StepConfirmation, svc.State().Step)
}
