// Package models defines the core domain models for moneybot.
//
// # Models
//
//   - Entry: one recorded purchase with its per-group share breakdown
//   - GroupTable: the fixed, ordered set of payer groups and their members
//
// Users are identified by their chat platform user ID (int64). A group is a
// payer category; every member of a group pays and owes on the group's
// behalf.
//
// # Design Principles
//
//  1. **Configuration is fixed**: the group table is loaded once at startup
//     and never mutated
//  2. **Order matters**: group order fixes the share column order on disk
//  3. **Entries are immutable**: once appended an entry is only ever removed
//     as a whole (undo) or rotated away (clear)
package models
