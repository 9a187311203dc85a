package extraction

// Outcome is the result of one extraction call: either a list of argument
// texts or the reason the call produced nothing.
type Outcome struct {
	args []string
	err  error
}

// Ok wraps a successful extraction.
func Ok(args []string) Outcome {
	return Outcome{args: args}
}

// Failed wraps a failed extraction.
func Failed(err error) Outcome {
	return Outcome{err: err}
}

// Err returns the failure reason, or nil.
func (o Outcome) Err() error {
	return o.err
}

// Arguments returns the extracted texts. A failed outcome has none.
func (o Outcome) Arguments() []string {
	if o.err != nil {
		return nil
	}
	return o.args
}
