package enrich

import "fmt"

// StageError is a stage failure on one record.
type StageError struct {
	Stage  Stage
	Record int
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("enrich: stage %s failed on record %d: %v", e.Stage, e.Record, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
