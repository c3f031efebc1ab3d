// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing business rules to remain
// independent of specific database technologies or persistence details.
//
// The progress store is the only shared mutable resource of the learning
// engine; every write to progress or completion flags goes through
// ProgressStore.Merge.
package store
