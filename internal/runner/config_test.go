package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "valid",
			cfg:  Config{Method: "echo", Concurrency: 5, TotalCalls: 100},
		},
		{
			name: "zero total calls is a legal empty run",
			cfg:  Config{Method: "echo", Concurrency: 1, TotalCalls: 0},
		},
		{
			name:    "zero concurrency",
			cfg:     Config{Method: "echo", Concurrency: 0, TotalCalls: 10},
			wantErr: ErrInvalidConcurrency,
		},
		{
			name:    "negative concurrency",
			cfg:     Config{Method: "echo", Concurrency: -3, TotalCalls: 10},
			wantErr: ErrInvalidConcurrency,
		},
		{
			name:    "negative total calls",
			cfg:     Config{Method: "echo", Concurrency: 1, TotalCalls: -1},
			wantErr: ErrInvalidTotal,
		},
		{
			name:    "missing method selector",
			cfg:     Config{Concurrency: 1, TotalCalls: 10},
			wantErr: ErrMissingMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestConfigWorkers(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
		total       int
		want        int
	}{
		{"concurrency above volume", 50, 5, 5},
		{"concurrency below volume", 3, 10, 3},
		{"equal", 4, 4, 4},
		{"empty run", 8, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Concurrency: tt.concurrency, TotalCalls: tt.total}
			assert.Equal(t, tt.want, cfg.Workers())
		})
	}
}
