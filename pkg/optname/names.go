package optname

const (
	BufferSize     = "buffer-size"
	ConnTimeout    = "connect-timeout"
	ForceHTTP2     = "force-http2"
	LoggingLevel   = "log-level"
	Output         = "output"
	Progress       = "progress"
	Resolve        = "resolve"
	RequestTimeout = "timeout"
	Threads        = "threads"
	Verbose        = "verbose"
)
