package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Field returns an error instance that wraps the original error with
// additional information. It returns `nil` if provided error is `nil`.
// Use this function to create an error instance describing a field/attribute
// error.
//
// Use Go naming for the field name. For example, Lender or FaceAmount. When
// the error is for a nested field, use dot notation to construct the path,
// for example Output.PaidAmount.
func Field(fieldName string, err error, description string, args ...interface{}) error {
	if isNilErr(err) {
		return nil
	}

	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}

	if len(args) > 0 {
		description = fmt.Sprintf(description, args...)
	}

	return &fieldError{
		parent: err,
		field:  fieldName,
		desc:   description,
	}
}

// AppendField is a shortcut function to club together error(s) with a given
// field error.
func AppendField(errsOrNil error, fieldName string, fieldErrOrNil error) error {
	return Append(errsOrNil, Field(fieldName, fieldErrOrNil, ""))
}

type fieldError struct {
	parent error
	field  string
	desc   string
}

func (e *fieldError) Error() string {
	if e.desc == "" {
		return fmt.Sprintf("field %q: %s", e.field, e.parent)
	}
	return fmt.Sprintf("field %q: %s: %s", e.field, e.desc, e.parent)
}

func (e *fieldError) Cause() error {
	return e.parent
}

// Field returns the name of the field that this error describes.
func (e *fieldError) Field() string {
	return e.field
}

// FieldErrors returns the list of all errors that are created for the given
// field name.
func FieldErrors(errOrNil error, fieldName string) []error {
	if isNilErr(errOrNil) {
		return nil
	}

	var res []error

	switch e := errOrNil.(type) {
	case *fieldError:
		if e.field == fieldName {
			res = append(res, e)
		}
	case unpacker:
		for _, err := range e.Unpack() {
			res = append(res, FieldErrors(err, fieldName)...)
		}
	}
	return res
}
