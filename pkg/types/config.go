package types

import "errors"

// Config holds backend selection and parameters for store.Open.
type Config struct {
	Backend  string `json:"backend" yaml:"backend"`
	Addr     string `json:"addr" yaml:"addr"`         // redis address, host:port
	Password string `json:"password" yaml:"password"` // redis password, optional
	DB       int    `json:"db" yaml:"db"`             // redis database number
	DataDir  string `json:"data_dir" yaml:"data_dir"` // sqlite data directory

	// TxRetries bounds the optimistic retry loop for conditioned
	// mutations. Zero selects DefaultTxRetries.
	TxRetries int `json:"tx_retries" yaml:"tx_retries"`
}

// Supported backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// DefaultTxRetries is the retry bound used when Config.TxRetries is zero.
const DefaultTxRetries = 5

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrAddrEmpty      = errors.New("redis backend requires an address")
	ErrRetriesInvalid = errors.New("tx retries must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendMemory: true,
	BackendRedis:  true,
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendRedis && c.Addr == "" {
		return ErrAddrEmpty
	}
	if c.TxRetries < 0 {
		return ErrRetriesInvalid
	}
	return nil
}

// Retries returns the effective retry bound.
func (c Config) Retries() int {
	if c.TxRetries > 0 {
		return c.TxRetries
	}
	return DefaultTxRetries
}
