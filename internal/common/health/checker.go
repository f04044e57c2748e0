package health

import (
	"github.com/hashicorp/go-multierror"
)

// Checker reports nil when the component it watches is healthy.
type Checker interface {
	Check() error
}

// MultiChecker is healthy when all of its checkers are. Check reports every failure, not just the first.
type MultiChecker []Checker

func NewMultiChecker(checkers ...Checker) MultiChecker {
	return checkers
}

func (mc MultiChecker) Check() error {
	var result *multierror.Error
	for _, checker := range mc {
		if err := checker.Check(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
