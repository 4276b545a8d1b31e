package genl

// DoitHandler serves a single request. It may send at most one reply
// through the request; the transport acknowledges the request on its own
// when asked to.
type DoitHandler interface {
	Doit(req *Request) error
}

// DumpitHandler serves a dump request by appending zero or more messages
// to the dump. The dispatcher closes the stream once Dumpit returns
// without errors.
type DumpitHandler interface {
	Dumpit(req *Request, d *Dump) error
}

// DoitFunc adapts a function into a DoitHandler.
type DoitFunc func(req *Request) error

func (f DoitFunc) Doit(req *Request) error {
	return f(req)
}

// DumpitFunc adapts a function into a DumpitHandler.
type DumpitFunc func(req *Request, d *Dump) error

func (f DumpitFunc) Dumpit(req *Request, d *Dump) error {
	return f(req, d)
}
