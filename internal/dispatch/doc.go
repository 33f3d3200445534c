// Package dispatch delivers reminder messages.
//
// Service fans a message out to the enabled channels (email, telegram,
// webhook). Each channel gets its own retry loop with exponential backoff and
// jitter; a shared token bucket limits the send rate. Errors wrapped with
// Permanent are not retried.
//
// # History
//
// The service keeps a bounded in-memory history of channel outcomes and
// publishes dispatch.sent / dispatch.failed on the event bus.
package dispatch
