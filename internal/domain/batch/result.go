// Package batch reports per-document outcomes of bulk catalog writes.
package batch

// ItemStatus is the processing outcome of a single document.
type ItemStatus string

// Item status values.
const (
	StatusWritten   ItemStatus = "written"
	StatusUnchanged ItemStatus = "unchanged"
	StatusError     ItemStatus = "error"
)

// Result is the outcome of processing one document.
type Result struct {
	path   string
	status ItemStatus
	err    error
}

// NewWritten creates a result for a document that was stored.
func NewWritten(path string) Result { return Result{path: path, status: StatusWritten} }

// NewUnchanged creates a result for a document that needed no write.
func NewUnchanged(path string) Result { return Result{path: path, status: StatusUnchanged} }

// NewError creates a failed result.
func NewError(path string, err error) Result { return Result{path: path, status: StatusError, err: err} }

// Path returns the document path.
func (r Result) Path() string { return r.path }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary counts results by status.
type Summary struct {
	Written   int `json:"written"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Summarize counts results by status.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.status {
		case StatusWritten:
			s.Written++
		case StatusUnchanged:
			s.Unchanged++
		case StatusError:
			s.Failed++
		}
	}
	return s
}
