// Package signup holds the validation rules for the signup form and the form
// state they drive.
package signup

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"
)

type Field string

const (
	Email           Field = "email"
	Password        Field = "password"
	ConfirmPassword Field = "confirmPassword"
)

// Fields lists the form fields in display order.
var Fields = []Field{Email, Password, ConfirmPassword}

var ErrUnknownField = errors.New("unknown field")

// ParseField maps a raw field name as submitted by a form to a Field.
func ParseField(name string) (Field, error) {
	switch f := Field(name); f {
	case Email, Password, ConfirmPassword:
		return f, nil
	default:
		return "", fmt.Errorf("%q: %w", name, ErrUnknownField)
	}
}

type ErrorKind string

const (
	InvalidEmail     ErrorKind = "InvalidEmail"
	PasswordTooShort ErrorKind = "PasswordTooShort"
	PasswordMismatch ErrorKind = "PasswordMismatch"
)

// ErrorKinds lists every kind in the order messages are displayed.
var ErrorKinds = []ErrorKind{InvalidEmail, PasswordTooShort, PasswordMismatch}

// Message returns the fixed display text for k.
func (k ErrorKind) Message() string {
	switch k {
	case InvalidEmail:
		return "The email you input is invalid."
	case PasswordTooShort:
		return "The password you entered should contain 5 or more characters."
	case PasswordMismatch:
		return "Confirm password does not match password."
	default:
		return ""
	}
}

// Field returns the field the message for k is shown next to.
func (k ErrorKind) Field() Field {
	switch k {
	case InvalidEmail:
		return Email
	case PasswordTooShort:
		return Password
	default:
		return ConfirmPassword
	}
}

func (k ErrorKind) order() int {
	for i, kind := range ErrorKinds {
		if kind == k {
			return i
		}
	}
	return len(ErrorKinds)
}

// ErrorSet maps each active error kind to its display message. Absent kinds
// are not active.
type ErrorSet map[ErrorKind]string

func (es ErrorSet) add(k ErrorKind) {
	es[k] = k.Message()
}

func (es ErrorSet) Has(k ErrorKind) bool {
	_, ok := es[k]
	return ok
}

func (es ErrorSet) Empty() bool {
	return len(es) == 0
}

// Kinds returns the active kinds in display order.
func (es ErrorSet) Kinds() []ErrorKind {
	kinds := make([]ErrorKind, 0, len(es))
	for k := range es {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].order() < kinds[j].order() })
	return kinds
}

// ForField returns the active messages displayed next to f.
func (es ErrorSet) ForField(f Field) []string {
	var messages []string
	for _, k := range es.Kinds() {
		if k.Field() == f {
			messages = append(messages, es[k])
		}
	}
	return messages
}

func (es ErrorSet) clone() ErrorSet {
	c := make(ErrorSet, len(es))
	for k, v := range es {
		c[k] = v
	}
	return c
}

// emailPattern requires a non-empty local part, a single "@", and a domain
// whose last "." is followed by a non-empty top-level segment.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s.]+$`)

const minPasswordLength = 6

// Validate computes the ErrorSet for a snapshot of the three field values.
// Every rule is checked on every call.
func Validate(email, password, confirmPassword string) ErrorSet {
	es := ErrorSet{}

	if !emailPattern.MatchString(email) {
		es.add(InvalidEmail)
	}

	if utf8.RuneCountInString(password) < minPasswordLength {
		es.add(PasswordTooShort)
	}

	if confirmPassword != password {
		es.add(PasswordMismatch)
	}

	return es
}
