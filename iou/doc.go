/*
Package iou implements the obligation record model, the transition
validation engine and the proposal builders.

An IOU is a linearly evolving record: every transition consumes the current
revision and produces at most one new revision under the same linear ID.
Three transition kinds exist: Issue creates a record, Transfer replaces the
lender, Settle pays down the outstanding amount and terminates the record
once fully paid.

Validate is a pure function so that every party of a transition can evaluate
the very same proposal independently and reach the very same conclusion,
without trusting anyone else's computation.
*/
package iou
