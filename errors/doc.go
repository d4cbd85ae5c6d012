/*
Package errors implements custom error interfaces for promissory.

The package provides a set of registered root errors. Almost every error
returned by this codebase is created by wrapping one of the root instances
declared here. This allows testing an error for its kind regardless of how
many times it was wrapped on the way up:

	if errors.ErrNotFound.Is(err) { ... }

Extensions that need a domain specific root error must create one using the
Register function. Error codes are global and must be unique.
*/
package errors
