// Package subscription correlates inbound notifications with registered
// typed subscriptions and raises typed events.
//
// A Registry holds one registration per broker subscription id. When a
// transport listener hands over a complete notification body, Dispatch
// parses it, looks up the registration by subscription id, decodes the
// payload through the record type's contract, and invokes the
// registration's callback synchronously on the dispatching goroutine.
//
// # Delivery Modes
//
// Full-entity registrations expect complete entity payloads; each entity
// in the notification produces one event carrying a freshly decoded typed
// instance. Attribute-diff registrations expect only changed
// attribute/value pairs; the event carries the diff, plus the last-known
// typed instance when the registration tracks one for that entity id.
// Merging a diff into an instance is the caller's choice; see Merge.
//
// # Unmatched Notifications
//
// Notifications whose subscription id has no registration are dropped
// silently. Overlapping and stale subscriptions make unmatched
// notifications an expected steady-state condition, not a defect.
package subscription
