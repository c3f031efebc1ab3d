// Package task manages background job queuing and processing.
// Certification requests that should not block an HTTP request are wrapped in
// tasks, buffered in a TaskQueue and executed by a WorkerPool. A cron sweep
// re-queues completions whose certificate was never recorded, so a restart
// loses no work.
package task
