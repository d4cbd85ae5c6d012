/*
Package flow implements the multi party commit protocol that turns a
proposal into a finalized transition.

The initiator builds and locally validates a proposal, signs it, gathers
the remaining signatures from every declared counterparty over a session
transport, and submits the completed proposal to the finality collaborator.
Each responder independently re-validates before signing and then waits for
the finality outcome so it can record the new revision in its own vault.

Both roles are explicit state machines. Every blocking exchange honours the
caller's context, so a party that never hears back releases its resources
once the deadline passes.
*/
package flow
