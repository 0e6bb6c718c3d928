package errors

// Fatal aborts the current compilation unit. It never returns.
func Fatal(err *Error) {
	panic(err)
}

// Assert raises a fatal error built by mk when cond is false. mk is only
// called on failure so callers can format details lazily.
func Assert(cond bool, mk func() *Error) {
	if !cond {
		panic(mk())
	}
}

// Recover converts a fatal *Error panic into *errp. Any other panic value is
// re-raised. Use it as a deferred call at the compilation driver boundary:
//
//	defer errors.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*Error); ok {
		*errp = e
		return
	}
	panic(r)
}

// IsFatal reports whether a recovered value is a fatal engine error.
func IsFatal(r any) (*Error, bool) {
	e, ok := r.(*Error)
	return e, ok
}
