package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"main/internal/oms"
	"main/internal/router"
	"main/internal/schema"
)

// fakeBroker is a controllable adapter: orders placed while connected are
// recorded, nothing fills until the test says so.
type fakeBroker struct {
	connected bool
	placed    []oms.Order
}

func (b *fakeBroker) Connected() bool { return b.connected }

func (b *fakeBroker) PlaceOrder(order oms.Order) error {
	b.placed = append(b.placed, order)
	return nil
}

func (b *fakeBroker) CancelOrder(uint64, schema.InstrumentID) error { return nil }

func buyOne() schema.Signal {
	return schema.Signal{
		InstrumentID: 1,
		StrategyID:   1,
		Side:         schema.OrderSideBuy,
		Type:         schema.OrderTypeMarket,
		Qty:          1,
	}
}

func TestRoutingBlockedUntilUnknownOrdersReconciled(t *testing.T) {
	s1 := &scriptedStrategy{trigger: 2000, signal: buyOne()}
	s2 := &scriptedStrategy{trigger: 3000, signal: buyOne()}
	s3 := &scriptedStrategy{trigger: 4000, signal: buyOne()}
	h := newHarness(t, 1_000_000, s1, s2, s3)

	broker := &fakeBroker{}
	h.dispatcher.router = router.NewLive(broker)

	h.dispatcher.Dispatch(barEvent(1, 1000, 50.0))

	// The link is down when the first signal routes: the order is created
	// but unplaceable, so it ends up state-unknown.
	h.dispatcher.Dispatch(barEvent(2, 2000, 50.0))
	require.Empty(t, broker.placed)
	open := h.orders.OpenOrders()
	require.Len(t, open, 1)
	require.Equal(t, oms.OrderStateUnknown, open[0].State)

	// Reconnecting alone does not reopen routing: the unknown order must
	// be reconciled first, so the next signal is denied.
	// Acks broadcast to every strategy, so the denial is the latest one.
	broker.connected = true
	h.dispatcher.Dispatch(barEvent(3, 3000, 50.0))
	require.Empty(t, broker.placed)
	require.Len(t, s2.acks, 2)
	require.Equal(t, schema.OrderAckStatusRejected, s2.acks[1].Status)
	require.Equal(t, schema.OrderAckReasonRoutingBlocked, s2.acks[1].Reason)
	snap := h.metrics.Snapshot()
	require.Equal(t, uint64(1), snap.RejectionCounts[schema.OrderAckReasonRoutingBlocked])

	// After reconciliation against broker state, routing resumes.
	_, err := h.orders.Reconcile(open[0].ID, oms.OrderStateCanceled, 0, 3500)
	require.NoError(t, err)

	h.dispatcher.Dispatch(barEvent(4, 4000, 50.0))
	require.Len(t, broker.placed, 1)
	require.Len(t, s3.acks, 3)
	require.Equal(t, schema.OrderAckStatusAcked, s3.acks[2].Status)

	placed, ok := h.orders.Order(broker.placed[0].ID)
	require.True(t, ok)
	require.Equal(t, oms.OrderStateSubmitted, placed.State)
}
