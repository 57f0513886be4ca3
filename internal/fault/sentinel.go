package fault

var _ error = Sentinel("")

// Sentinel is a const error value. Packages declare their named conditions
// with it and callers match them with errors.Is, including through the
// *Error a stage failure is classified with.
type Sentinel string

// Error implements the error interface.
func (e Sentinel) Error() string {
	return string(e)
}
