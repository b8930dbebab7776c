package bus

import "fmt"

// Closer is implemented by backends that hold an open resource (file
// handles, a connection pool) that should be released on shutdown.
type Closer interface {
	Close() error
}

// New builds an EventBus for the given backend ("file" or "redis"). baseDir
// is used by the file backend; redisURL and redisPrefix are used by the
// redis backend. Unknown backends are a configuration error, not a runtime
// fallback — silently defaulting to file would make a misconfigured deploy
// pass local tests and then diverge from its intended topology.
func New(backend, baseDir, redisURL, redisPrefix string) (EventBus, error) {
	switch backend {
	case "", "file":
		return NewFileBus(baseDir)
	case "redis":
		return NewRedisBus(redisURL, redisPrefix)
	default:
		return nil, fmt.Errorf("bus: unknown backend %q", backend)
	}
}
