// Package conversion tracks the per-item conversion state machine.
//
// Each admitted item is idle, converting, done or error. The fields that go
// with a state live inside that state's variant, so a done item always has a
// result handle and an error item always has a message. Conversions run in
// their own goroutines; the item is marked converting before the work
// starts, and a late result for an item that was removed or restarted is
// dropped.
package conversion
