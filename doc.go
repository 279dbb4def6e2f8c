// Package twopc provides the shared data model, error kinds, logging and
// configuration contracts for a two-phase commit transaction manager.
//
// An Order groups a set of participants (TPCTask). Each participant
// supplies a prepare, a commit and an optional compensate, all dispatched
// through the actuator package's retrying task queue. Package tm drives
// orders through prepare/commit/compensate and exposes the governance
// surface used to recover transactions stuck in the Blocking state.
package twopc
