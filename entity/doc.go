// Package entity implements the entity containment tree, relative id path
// addressing, and reference acquisition over the tree.
//
// Every entity owns a payload tree and an ordered list of contained
// entities. The container edge is a weak pointer and never keeps a
// container alive.
//
// Each entity has two locks. The reference lock is what Acquire,
// AcquireSubtree and AcquireDual take, and it guards the payload, seed
// and permissions. The structure lock is held only for the duration of
// a single lookup or edit of the contained list. No code waits for a
// reference lock while holding a structure lock, so traversal never
// participates in a lock cycle.
//
// Bundles lock entities in post-order: descendants before ancestors and
// sibling subtrees by position in their container. Every bundle taken
// through this package follows that order, which is what makes
// concurrent dual acquisitions deadlock free regardless of argument
// order.
package entity
