// Package reminder implements the upcoming-event notification pipeline.
//
// Engine.ScanAndNotify is deterministic: today, the dispatcher and the
// notification log are injected. It selects events whose date is 0..7 days
// away, skips composite keys already present in the log, dispatches the
// reminder and persists each new notification as soon as it is created.
// Runner binds the engine to storage, a clock and a timezone.
package reminder
