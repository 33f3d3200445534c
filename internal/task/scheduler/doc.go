// Package scheduler triggers jobs on cron and interval schedules.
//
// Jobs run on the cron goroutine wrapped with panic recovery and
// skip-if-still-running. Schedules are kept across Stop/Start and timezone
// changes; RunNow executes a registered job on demand.
package scheduler
