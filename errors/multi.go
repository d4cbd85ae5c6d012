package errors

import (
	"strings"
)

// Append clubs together all provided errors. Nil values are ignored.
//
// If given error implements unpacker interface, it is flattened. All
// represented errors are directly included into the result set, without
// maintaining the hierarchy.
func Append(errs ...error) error {
	var collection multiError
	for _, err := range errs {
		if isNilErr(err) {
			continue
		}
		if u, ok := err.(unpacker); ok {
			collection = append(collection, u.Unpack()...)
		} else {
			collection = append(collection, err)
		}
	}

	switch len(collection) {
	case 0:
		return nil
	case 1:
		return collection[0]
	default:
		return collection
	}
}

// multiError represents a group of errors. It is itself an error with a
// slightly different behaviour. It is matching (Is check) any of the grouped
// errors instead of a single one.
type multiError []error

func (errs multiError) Error() string {
	switch len(errs) {
	case 0:
		return "<nil>"
	case 1:
		return errs[0].Error()
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unpack implements the unpacker interface.
func (errs multiError) Unpack() []error {
	return errs
}

func isNilErr(err error) bool {
	if err == nil {
		return true
	}
	if merr, ok := err.(multiError); ok {
		return len(merr) == 0
	}
	return false
}
