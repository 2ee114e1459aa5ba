package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/kinscan/internal/model"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"John Smith (1914-1990)", "John-Smith-(1914-1990)"},
		{"Person:Jane/Doe?", "Person_Jane_Doe"},
		{"  ", "report"},
		{"../../etc", "etc"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}

	long := sanitizeFilename(string(bytes.Repeat([]byte("é"), 80)))
	assert.LessOrEqual(t, len(long), 100)
	assert.Equal(t, 50, len([]rune(long)))
}

func TestUniqueName(t *testing.T) {
	used := make(map[string]bool)
	assert.Equal(t, "smith", uniqueName(used, "smith"))
	assert.Equal(t, "smith-2", uniqueName(used, "smith"))
	assert.Equal(t, "jones", uniqueName(used, "jones"))
	assert.Equal(t, "smith-3", uniqueName(used, "smith"))
}

func TestUniqueName_SuffixedSubjectCollides(t *testing.T) {
	used := make(map[string]bool)
	var got []string
	for _, subject := range []string{"a", "a", "a-2", "a-2", "a"} {
		got = append(got, uniqueName(used, subject))
	}

	assert.Equal(t, []string{"a", "a-2", "a-2-2", "a-2-3", "a-3"}, got)
	assert.Len(t, used, len(got), "every report gets its own file")
}

func TestDateRow(t *testing.T) {
	assert.Equal(t,
		[]string{"1850-03-15", "1850-03-15", "3/15/1850", "1850-03-15", "1850"},
		dateRow("1850-03-15", "1/2/2006"))
	assert.Equal(t,
		[]string{"1850?", "1850?", "1850 (uncertain)", "1850-01-01", "1850"},
		dateRow("1850?", "1/2/2006"))
	assert.Equal(t,
		[]string{"18uu", "18uu", "18uu", "-", "18"},
		dateRow("18uu", "1/2/2006"))
	assert.Equal(t,
		[]string{"Not a date", "-", "-", "-", "-"},
		dateRow("Not a date", "1/2/2006"))
}

func TestSetupViper_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	v := viper.New()
	require.NoError(t, setupViper(v, path))

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestSetupViper_MissingExplicitFile(t *testing.T) {
	err := setupViper(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSetupViper_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Kinscan configuration")

	custom := []byte("http:\n  timeout: 45s\nextract:\n  max_depth: 8\n")
	require.NoError(t, os.WriteFile(path, custom, 0o644))
	t.Setenv("KINSCAN_DISPLAY_DATE_LAYOUT", "2 Jan 2006")

	v := viper.New()
	require.NoError(t, setupViper(v, path))
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 8, cfg.Extract.MaxDepth)
	assert.Equal(t, "2 Jan 2006", cfg.Display.DateLayout)
	assert.Equal(t, model.DefaultConfig().HTTP.UserAgent, cfg.HTTP.UserAgent, "unset keys keep defaults")
	assert.True(t, cfg.Cache.Enabled)
}

func TestSetupViper_ProxyFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	t.Setenv("KINSCAN_HTTP_HTTP_PROXY", "http://proxy.local:3128")
	t.Setenv("KINSCAN_HTTP_HTTPS_PROXY", "http://secure-proxy.local:3128")
	t.Setenv("KINSCAN_HTTP_NO_PROXY", "localhost,.internal")

	v := viper.New()
	require.NoError(t, setupViper(v, path))
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "http://proxy.local:3128", cfg.HTTP.HTTPProxy)
	assert.Equal(t, "http://secure-proxy.local:3128", cfg.HTTP.HTTPSProxy)
	assert.Equal(t, "localhost,.internal", cfg.HTTP.NoProxy)
}

func TestWriteConfigYAML_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeConfigYAML(&buf, model.DefaultConfig()))

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	v := viper.New()
	require.NoError(t, setupViper(v, path))
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}
