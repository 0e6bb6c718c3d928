// Package arena implements the bump-pointer allocator every layout structure
// is carved from.
//
// An Arena owns a singly linked list of pages obtained from a SlabHost.
// Allocations are rounded up to the pointer size and served from the last
// page until it runs out, at which point a new page is requested. Nothing is
// freed individually; Destroy hands every page back to the host at once.
//
// Arenas are not safe for concurrent use. Each compilation unit owns one.
//
// Allocation failure is fatal: Alloc panics with *errors.Error (phase
// "alloc") and callers never check a result.
package arena
