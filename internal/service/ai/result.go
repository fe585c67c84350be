package ai

// Failure is a generation error carried as a value. Message is shown to the user.
type Failure struct {
	Message string
	Cause   error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// Result holds either generated text or a failure.
type Result struct {
	Text string
	Err  *Failure
}

// OK reports whether the generation produced text.
func (r Result) OK() bool {
	return r.Err == nil
}

func Success(text string) Result {
	return Result{Text: text}
}

func Fail(err error) Result {
	if err == nil {
		return Result{Err: &Failure{Message: "unknown generation error"}}
	}
	return Result{Err: &Failure{Message: err.Error(), Cause: err}}
}
