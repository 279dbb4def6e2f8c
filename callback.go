package twopc

// TaskCallback is invoked by the Callback Router (package tm) when a
// participant's prepare, commit or compensate action reaches a terminal
// TaskStatus (base spec §4.4). Implementations must not block; slow work
// belongs in the actuator's LocalCall, not here.
type TaskCallback func(toid Toid, ttid Ttid, status TaskStatus)

// OrderCallback is invoked once when an order reaches a terminal
// OrderStatus (Done or Aborted), from _orderComplete (base spec §4.2 step
// 6). A panic or error from this callback is swallowed and recorded on
// Order.CallbackStatus rather than propagated, per base spec §7.
type OrderCallback func(toid Toid, status OrderStatus)
