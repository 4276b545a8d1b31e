package types

// Service is a long running component the daemon brings up and tears down
// around the dispatch core: the admin API and the named pipe injector.
type Service interface {
	Init() error
	Run(<-chan struct{})
	Cleanup() error
	String() string
}
