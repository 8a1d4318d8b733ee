package roster

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyRoster   = errors.New("roster has no header row")
	ErrMissingColumn = errors.New("missing column")
	ErrColumnCount   = errors.New("wrong number of columns")
	ErrMalformedTime = errors.New("malformed timestamp")
	ErrMalformedFlag = errors.New("malformed duty complete flag")
)

// RowError ties a parse failure to its source row.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
