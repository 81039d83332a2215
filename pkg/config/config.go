package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                 string // connection string for the database
	WaitForServices    string // duration to wait for other services to be ready
	LogLevel           string // sets the log level (zap log level values)
	SQLLogLevel        string // sets the log level for sql subsystem
	LogFormat          string // text vs json
	LogConfig          string // path to log config file
	MigrationSourceURL string // location of migration files
	EnableTelemetry    bool   // enable telemetry
	TelemetryEndpoint  string // endpoint for telemetry
	ProfilingPort      int    // port for profiling
	HTTPServerAddr     string // listen addr for the HTTP API server (insecure)
	TLSServerAddr      string // listen addr for the HTTP API server (tls)
	TLSCertFile        string // path to TLS certificate
	TLSKeyFile         string // path to TLS key
	TraefikCerts       string // path to traefik certs file
	TraefikCertDomain  string // the domain to lookup within the traefik certs
	ForecastServiceURL string // base URL of the external ranking service (empty: use store)
	SimDeadline        string // deadline for a single championship simulation request
	SimWorkers         int    // number of workers for simulation trials (0: GOMAXPROCS)
	FastTrialCap       int    // upper bound for trials in fast mode
	FullTrialCap       int    // upper bound for trials in full mode
)

// analysis defaults; each of these may be overridden per request
const (
	DefaultMinLaps              = 3
	DefaultQuickQuantile        = 0.75
	DefaultDegradationThreshold = 0.06
	DefaultPitEffectWindowLaps  = 3
	DefaultPitEffectEpsilonS    = 0.05
	DefaultTrackEvoBucketLaps   = 5
	DefaultTrackEvoQuantile     = 0.60
	DefaultSimTrials            = 500
)
