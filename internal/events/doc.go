// Package events provides types and interfaces for publishing domain events.
//
// Services emit events without knowing which handlers process them. The
// learning service emits TypeCompletionRecorded when certification runs in the
// background; the task package turns that event into a certification task.
package events
