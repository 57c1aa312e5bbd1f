package mon

// Config holds all parameters of one monitor process instance. It is built
// explicitly at process start (from flags and environment) and passed by
// reference into each constructor; no component reads ambient global state.
type Config struct {
	// Path is the store directory of this monitor (the mon data dir).
	Path string
	// Name is this monitor's identity in the membership map (e.g. "a").
	// Required for start, unused by the administrative procedures.
	Name string
	// LogLevel is the level at which logs are emitted (debug, info, warn,
	// error).
	LogLevel string
}
