package customer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/store"
)

var (
	writer   = domain.MustIdentity("0x5555555555555555555555555555555555555555")
	acme     = domain.MustIdentity("0x1111111111111111111111111111111111111111")
	globex   = domain.MustIdentity("0x2222222222222222222222222222222222222222")
	alice    = domain.MustIdentity("0x3333333333333333333333333333333333333333")
	stranger = domain.MustIdentity("0x9999999999999999999999999999999999999999")
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, st.SetWiring(context.Background(), domain.WiringWriterKey(domain.RegistryCustomer), writer))
	return NewLedger(st)
}

func TestRecordPurchaseRegistersImplicitly(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	// Unknown pairs report a zero total without erroring
	total, err := ledger.TotalFor(ctx, acme, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	// The first purchase creates the record
	require.NoError(t, ledger.RecordPurchase(ctx, writer, acme, alice, 100))

	record, err := ledger.Get(ctx, acme, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(100), record.TotalPurchases)
	assert.True(t, record.Active)
	assert.False(t, record.RegisteredAt.IsZero())

	// Subsequent purchases accumulate
	require.NoError(t, ledger.RecordPurchase(ctx, writer, acme, alice, 50))

	total, err = ledger.TotalFor(ctx, acme, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(150), total)

	// Totals are per (company, customer)
	total, err = ledger.TotalFor(ctx, globex, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	// Explicit registration creates the record with a zero total
	require.NoError(t, ledger.Register(ctx, writer, acme, alice))

	record, err := ledger.Get(ctx, acme, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), record.TotalPurchases)

	// Registering again is a harmless no-op on the total
	require.NoError(t, ledger.Register(ctx, writer, acme, alice))

	total, err := ledger.TotalFor(ctx, acme, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestRecordPurchaseRequiresWriter(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	err := ledger.RecordPurchase(ctx, stranger, acme, alice, 100)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	err = ledger.RecordPurchase(ctx, acme, acme, alice, 100)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = ledger.Get(ctx, acme, alice)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordPurchaseRejectsNegative(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	err := ledger.RecordPurchase(ctx, writer, acme, alice, -1)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}
