package tm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orcaby/twopc"
)

func TestRegisterOrderCallbackFiresInsteadOfDefault(t *testing.T) {
	var defaultFired, perOrderFired bool
	m := New(WithConfig(twopc.DefaultConfig()),
		WithDefaultOrderCallback(func(toid twopc.Toid, status twopc.OrderStatus) { defaultFired = true }))
	m.GetActuator().Registry().Register("prepare", alwaysOK)
	m.GetActuator().Registry().Register("commit", alwaysOK)

	order := m.Create(nil)
	_, err := m.Push(order.Toid, twopc.Task{CallType: "prepare"}, twopc.Task{CallType: "commit"}, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, m.RegisterOrderCallback(order.Toid, func(toid twopc.Toid, status twopc.OrderStatus) {
		perOrderFired = true
	}))

	require.NoError(t, m.Finish(order.Toid))
	require.NoError(t, m.Run(context.Background(), order.Toid))
	driveUntilTerminal(t, m, order.Toid, 5)

	require.True(t, perOrderFired, "expected the per-order callback to fire")
	require.False(t, defaultFired, "expected the per-order callback to preempt the default")
}

func TestOpenRefusesTerminalOrder(t *testing.T) {
	m := New(WithConfig(twopc.DefaultConfig()))
	m.GetActuator().Registry().Register("prepare", alwaysOK)
	m.GetActuator().Registry().Register("commit", alwaysOK)

	order := m.Create(nil)
	_, err := m.Push(order.Toid, twopc.Task{CallType: "prepare"}, twopc.Task{CallType: "commit"}, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.Finish(order.Toid))
	require.NoError(t, m.Run(context.Background(), order.Toid))
	driveUntilTerminal(t, m, order.Toid, 5)

	status, err := m.Status(order.Toid)
	require.NoError(t, err)
	require.Equal(t, twopc.OrderDone, status)

	err = m.Open(order.Toid)
	require.Error(t, err)
	require.True(t, twopc.IsCode(err, twopc.ErrCodeOrderTerminal))

	o, err := m.GetOrder(order.Toid)
	require.NoError(t, err)
	require.NotEqual(t, twopc.GateOpening, o.AllowPushing, "gate must not reopen on a terminal order")
}

func TestRegisterOrderCallbackUnknownOrder(t *testing.T) {
	m := New(WithConfig(twopc.DefaultConfig()))
	err := m.RegisterOrderCallback(twopc.Toid(99), func(twopc.Toid, twopc.OrderStatus) {})
	require.Error(t, err)
	require.True(t, twopc.IsCode(err, twopc.ErrCodeOrderNotFound))
}

func TestRegisterOrderCallbackSwallowsPanic(t *testing.T) {
	m := New(WithConfig(twopc.DefaultConfig()))
	m.GetActuator().Registry().Register("prepare", alwaysOK)
	m.GetActuator().Registry().Register("commit", alwaysOK)

	order := m.Create(nil)
	_, err := m.Push(order.Toid, twopc.Task{CallType: "prepare"}, twopc.Task{CallType: "commit"}, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, m.RegisterOrderCallback(order.Toid, func(twopc.Toid, twopc.OrderStatus) {
		panic("boom")
	}))

	require.NoError(t, m.Finish(order.Toid))
	require.NoError(t, m.Run(context.Background(), order.Toid))
	require.NotPanics(t, func() {
		driveUntilTerminal(t, m, order.Toid, 5)
	})

	status, err := m.Status(order.Toid)
	require.NoError(t, err)
	require.Equal(t, twopc.OrderDone, status)
}

func TestRegisterOrderCallbackNilClearsRegistration(t *testing.T) {
	var fired bool
	m := New(WithConfig(twopc.DefaultConfig()),
		WithDefaultOrderCallback(func(toid twopc.Toid, status twopc.OrderStatus) { fired = true }))
	m.GetActuator().Registry().Register("prepare", alwaysOK)
	m.GetActuator().Registry().Register("commit", alwaysOK)

	order := m.Create(nil)
	_, err := m.Push(order.Toid, twopc.Task{CallType: "prepare"}, twopc.Task{CallType: "commit"}, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, m.RegisterOrderCallback(order.Toid, func(twopc.Toid, twopc.OrderStatus) {
		t.Fatal("this callback must be cleared before terminalization")
	}))
	require.NoError(t, m.RegisterOrderCallback(order.Toid, nil))

	require.NoError(t, m.Finish(order.Toid))
	require.NoError(t, m.Run(context.Background(), order.Toid))
	driveUntilTerminal(t, m, order.Toid, 5)

	require.True(t, fired, "expected the default callback to fire after the registration was cleared")
}
