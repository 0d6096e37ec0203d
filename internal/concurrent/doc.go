// Package concurrent provides execution contexts with goroutine affinity.
//
// Go has no goroutine identity, so the identity of the logical owner of an
// operation travels in a context.Context as a Caller. A SynchronizationContext
// owns one identity; HasAccess reports whether a context.Context carries it.
//
// # Flavours
//
//   - Immediate: every caller has access and tasks run inline.
//   - Affinity: a single goroutine drains a FIFO queue. Callers that already
//     run on it execute inline; everybody else is marshalled onto the queue,
//     either waiting for completion (ModeBlocking) or returning at once
//     (ModeFireAndForget).
//
// Tasks submitted to the same context execute in submission order. A queued
// task whose Future is cancelled before it starts is stale: it is skipped and
// counted, never run.
package concurrent
