package checkout_test

import (
	"sync"
	"testing"

	"tokocheckout/internal/checkout"
	"tokocheckout/internal/models"
	"tokocheckout/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testFees = pricing.Fees{ServiceFee: 1000}

	jneRegular = models.ShippingOption{
		ID:                 "jne-reg",
		Carrier:            "JNE",
		Service:            "REG",
		Cost:               7000,
		InsuranceCost:      300,
		InsuranceAvailable: true,
	}
)

func newTestSession(t *testing.T) *checkout.Session {
	t.Helper()
	s := checkout.NewSession(testFees, nil)
	err := s.Initialize([]models.LineItem{
		{ProductID: "prod-1", ProductName: "Laptop", Quantity: 2, Price: 100000, OriginalPrice: 120000},
	}, checkout.Defaults{
		Shipping:            &jneRegular,
		ShippingAddressID:   "addr-1",
		PaymentMethod:       models.PaymentMethodBankTransfer,
		Bank:                models.BankBCA,
		UseInsurance:        true,
		UseWarranty:         true,
		WarrantyCostPerItem: 1100,
		Bonus:               1700,
	})
	require.NoError(t, err)
	return s
}

func TestSession_InitializeComputesSummary(t *testing.T) {
	s := newTestSession(t)
	snap := s.Snapshot()

	assert.Equal(t, int64(168800), snap.Summary.Total)
	assert.Equal(t, int64(40000), snap.Summary.Savings)
	assert.True(t, snap.CanSubmit)
	assert.Empty(t, snap.Missing)
}

func TestSession_InitializeRejectsZeroQuantity(t *testing.T) {
	s := checkout.NewSession(testFees, nil)
	err := s.Initialize([]models.LineItem{{ProductID: "p", Quantity: 0, Price: 10}}, checkout.Defaults{})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, s.Snapshot().Draft.Items)
}

func TestSession_SetQuantityRecomputes(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.SetQuantity(0, 3))
	snap := s.Snapshot()
	assert.Equal(t, int64(300000), snap.Summary.Subtotal)
	assert.Equal(t, int64(60000), snap.Summary.TotalDiscount)
	assert.Equal(t, int64(3300), snap.Summary.WarrantyCost)
	assert.Equal(t, 3, snap.Summary.TotalItems)
	assert.Equal(t, pricing.Calculate(snap.Draft, testFees), snap.Summary)
}

func TestSession_SetQuantityBelowOneIsRejected(t *testing.T) {
	s := newTestSession(t)
	before := s.Snapshot()

	for _, q := range []int{0, -1} {
		err := s.SetQuantity(0, q)
		assert.ErrorIs(t, err, models.ErrValidation)
	}
	assert.Equal(t, before, s.Snapshot())
}

func TestSession_SetQuantityUnknownIndex(t *testing.T) {
	s := newTestSession(t)
	before := s.Snapshot()

	assert.ErrorIs(t, s.SetQuantity(5, 1), models.ErrValidation)
	assert.Equal(t, before, s.Snapshot())
}

func TestSession_RemoveItemBlocksSubmit(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.RemoveItem(0))
	snap := s.Snapshot()
	assert.Empty(t, snap.Draft.Items)
	assert.False(t, snap.CanSubmit)
	assert.Contains(t, snap.Missing, "items")
	assert.Zero(t, snap.Summary.Subtotal)
}

func TestSession_ToggleInsuranceOff(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.ToggleInsurance(false))
	assert.Zero(t, s.Snapshot().Summary.InsuranceCost)

	require.NoError(t, s.ToggleInsurance(true))
	assert.Equal(t, int64(300), s.Snapshot().Summary.InsuranceCost)
}

func TestSession_ToggleWarranty(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.ToggleWarranty(false))
	snap := s.Snapshot()
	assert.Zero(t, snap.Summary.WarrantyCost)
	assert.Equal(t, int64(166600), snap.Summary.Total)
}

func TestSession_SelectShippingClearsAndBlocks(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.SelectShipping(nil))
	snap := s.Snapshot()
	assert.Zero(t, snap.Summary.ShippingCost)
	assert.Zero(t, snap.Summary.InsuranceCost)
	assert.False(t, snap.CanSubmit)
	assert.Contains(t, snap.Missing, "shipping_option")

	sicepat := models.ShippingOption{ID: "sicepat", Carrier: "SiCepat", Cost: 9000}
	require.NoError(t, s.SelectShipping(&sicepat))
	snap = s.Snapshot()
	assert.Equal(t, int64(9000), snap.Summary.ShippingCost)
	assert.Zero(t, snap.Summary.InsuranceCost)
	assert.True(t, snap.CanSubmit)
}

func TestSession_CanSubmitTracksEveryChange(t *testing.T) {
	s := newTestSession(t)
	assert.True(t, s.CanSubmit())

	require.NoError(t, s.SelectAddress(""))
	assert.False(t, s.CanSubmit())
	require.NoError(t, s.SelectAddress("addr-2"))
	assert.True(t, s.CanSubmit())

	require.NoError(t, s.SelectPaymentMethod("", ""))
	assert.False(t, s.CanSubmit())
	assert.Contains(t, s.MissingFields(), "payment_method")

	require.NoError(t, s.SelectPaymentMethod(models.PaymentMethodBankTransfer, ""))
	assert.False(t, s.CanSubmit())
	assert.Contains(t, s.MissingFields(), "bank")

	require.NoError(t, s.SelectPaymentMethod(models.PaymentMethodQRIS, models.BankBCA))
	assert.True(t, s.CanSubmit())
	assert.Empty(t, s.Snapshot().Draft.Bank)
}

func TestSession_SetNoteAndBonus(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.SetNote("leave at the door"))
	require.NoError(t, s.SetBonus(0))
	snap := s.Snapshot()
	assert.Equal(t, "leave at the door", snap.Draft.Note)
	assert.Equal(t, int64(170500), snap.Summary.Total)

	assert.ErrorIs(t, s.SetBonus(-1), models.ErrValidation)
}

func TestSession_SubscribeSeesEveryMutation(t *testing.T) {
	s := newTestSession(t)

	var totals []int64
	unsubscribe := s.Subscribe(func(snap checkout.Snapshot) {
		totals = append(totals, snap.Summary.Total)
	})
	defer unsubscribe()

	require.NoError(t, s.ToggleWarranty(false))
	require.Error(t, s.SetQuantity(0, 0))
	require.NoError(t, s.ToggleWarranty(true))

	assert.Equal(t, []int64{168800, 166600, 168800}, totals)
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	s := newTestSession(t)

	snap := s.Snapshot()
	snap.Draft.Items[0].Quantity = 99
	snap.Draft.Shipping.Cost = 1

	again := s.Snapshot()
	assert.Equal(t, 2, again.Draft.Items[0].Quantity)
	assert.Equal(t, int64(7000), again.Draft.Shipping.Cost)
}

func TestSession_ClosedRejectsMutations(t *testing.T) {
	s := newTestSession(t)
	s.Close()

	assert.ErrorIs(t, s.SetQuantity(0, 1), checkout.ErrSessionClosed)
	assert.ErrorIs(t, s.ToggleInsurance(false), models.ErrValidation)
	assert.False(t, s.CanSubmit())
}

func TestSession_MutationForgetsRecordedOrder(t *testing.T) {
	s := newTestSession(t)
	key := s.IdempotencyKey()
	require.True(t, s.RecordOrder(key, "order-1"))

	require.NoError(t, s.SelectPaymentMethod(models.PaymentMethodQRIS, ""))
	assert.Equal(t, "order-1", s.OrderID())
	assert.Equal(t, key, s.IdempotencyKey())

	require.NoError(t, s.SetQuantity(0, 1))
	assert.Empty(t, s.OrderID())
	assert.NotEqual(t, key, s.IdempotencyKey())
}

func TestSession_RecordOrderIgnoresOutdatedKey(t *testing.T) {
	s := newTestSession(t)
	key := s.Snapshot().IdempotencyKey
	require.NoError(t, s.SetQuantity(0, 1))

	assert.False(t, s.RecordOrder(key, "order-1"))
	assert.Empty(t, s.OrderID())

	current := s.Snapshot().IdempotencyKey
	assert.NotEqual(t, key, current)
	assert.True(t, s.RecordOrder(current, "order-2"))
	assert.Equal(t, "order-2", s.OrderID())
}

func TestSession_ConcurrentMutationsStayConsistent(t *testing.T) {
	s := newTestSession(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.SetQuantity(0, i%5+1)
			_ = s.ToggleWarranty(i%2 == 0)
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, pricing.Calculate(snap.Draft, testFees), snap.Summary)
}
