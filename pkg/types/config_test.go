package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:   "memory backend valid",
			config: Config{Backend: BackendMemory},
		},
		{
			name:   "sqlite backend valid",
			config: Config{Backend: BackendSQLite, DataDir: "/tmp/shelf"},
		},
		{
			name:   "redis backend with addr valid",
			config: Config{Backend: BackendRedis, Addr: "localhost:6379"},
		},
		{
			name:    "empty backend rejected",
			config:  Config{},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend rejected",
			config:  Config{Backend: "etcd"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "redis backend without addr rejected",
			config:  Config{Backend: BackendRedis},
			wantErr: ErrAddrEmpty,
		},
		{
			name:    "negative retries rejected",
			config:  Config{Backend: BackendMemory, TxRetries: -1},
			wantErr: ErrRetriesInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigRetries(t *testing.T) {
	assert.Equal(t, DefaultTxRetries, Config{}.Retries())
	assert.Equal(t, 3, Config{TxRetries: 3}.Retries())
}
