/*
Package promissory implements a versioned IOU obligation ledger together with
the protocol by which mutually distrusting parties propose, validate,
counter-sign and finalize updates to it.

The root package holds the primitive identity types shared by every
extension: a Condition describes who can authorize an action and an Address
is its collision free digest. Payment describes a movement of the external
payment asset.

The interesting parts live in the sub packages:

	iou     the record model, the transition validation engine and the
	        proposal builders
	flow    the multi party commit protocol (initiator and responder)
	notary  the finality service ordering transitions and preventing
	        double spends
	vault   per party storage of record revisions
	cash    the payment asset collaborator
*/
package promissory
