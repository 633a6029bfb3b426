package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValidateYAML(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "empty document", content: ""},
		{name: "partial", content: "marker: ready\ngate:\n  max_pending: 10\n"},
		{name: "unknown key", content: "markr: ready\n", wantErr: "schema validation failed"},
		{name: "unknown nested key", content: "filter:\n  stdin:\n    pass_all: true\n", wantErr: "schema validation failed"},
		{name: "wrong type", content: "gate:\n  max_pending: lots\n", wantErr: "max_pending"},
		{name: "bad log level", content: "log:\n  level: loud\n", wantErr: "level"},
		{name: "not yaml", content: "marker: [oops", wantErr: "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateYAML([]byte(tt.content))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateYAML_DefaultConfig(t *testing.T) {
	data, err := yaml.Marshal(Default())
	require.NoError(t, err)
	assert.NoError(t, ValidateYAML(data))
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()

	err := ValidateFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("drain_timeout: 2s\n"), 0o644))
	assert.NoError(t, ValidateFile(path))
}

func TestLoader_RejectsUnknownKeys(t *testing.T) {
	project := t.TempDir()
	writeConfig(t, project, "transcipt: /tmp/typo.log\n")

	_, err := NewLoader("", project).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}
