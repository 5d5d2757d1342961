package annotator

import (
	"errors"
	"fmt"
)

// ErrUnsupportedSource is returned for files no metadata source understands.
var ErrUnsupportedSource = errors.New("unsupported source file")

// AcquisitionError reports that the metadata of a file could not be obtained.
// No output is produced for such a file.
type AcquisitionError struct {
	Path   string
	Source string
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire %s metadata for %s: %v", e.Source, e.Path, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}
