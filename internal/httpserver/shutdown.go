package httpserver

import "time"

// Defaults applied when the configuration leaves a timeout unset. Uploads
// stream through the handler, so the write timeout is generous.
const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultWriteTimeout      = 60 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
)
