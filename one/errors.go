package one

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument matches every *InvalidArgumentError.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentError is returned before anything is sent.
type InvalidArgumentError struct {
	Op     string
	Arg    string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s", e.Op, e.Arg, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalid(op, arg, reason string) error {
	return &InvalidArgumentError{Op: op, Arg: arg, Reason: reason}
}

func checkCred(op, cred string) error {
	user, _, ok := strings.Cut(cred, ":")
	if !ok {
		return invalid(op, "credential", `want "<username>:<secret>"`)
	}
	if user == "" {
		return invalid(op, "credential", "empty username")
	}
	return nil
}

func checkID(op, arg string, id int) error {
	if id < 0 {
		return invalid(op, arg, fmt.Sprintf("%d is negative", id))
	}
	return nil
}
