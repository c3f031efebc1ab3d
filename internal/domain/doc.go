// Package domain contains the core business entities, value objects, and
// domain logic of the microlearning engine: per-video progress records and
// their monotonic merge, the access gate, and completion records. It is
// independent of any storage or delivery mechanism.
package domain
