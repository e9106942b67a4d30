package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "defaults are valid", config: NewDefaultConfig(), wantErr: false},
		{name: "console format", config: Config{Level: "debug", Format: "console"}, wantErr: false},
		{name: "unknown level", config: Config{Level: "loud", Format: "json"}, wantErr: true},
		{name: "unknown format", config: Config{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New(NewDefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = New(Config{Level: "bogus", Format: "json"})
	require.Error(t, err)
}
