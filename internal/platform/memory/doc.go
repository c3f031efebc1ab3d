// Package memory provides in-process implementations of the store interfaces.
// They back the "memory" store driver and the service tests. Every write is
// applied under a mutex using the same pure merge functions the database
// backends mirror in SQL and Lua, so all drivers agree on the resulting state.
package memory
