package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8084", cfg.Address())
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "datatransaksi2023.csv", cfg.Data.TransactionsFile)
	assert.Equal(t, "datauser2023.csv", cfg.Data.UsersFile)
	assert.Equal(t, "dataproduk2023.csv", cfg.Data.ProductsFile)
	assert.Equal(t, "January,February,March,April", cfg.Data.MonthWindow)
	assert.Equal(t, "reject", cfg.Data.MonthPolicy)
	assert.Equal(t, 5, cfg.Data.AgeBinWidth)
	assert.Equal(t, []string{"http://localhost:8084"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, "none", cfg.Observability.TraceExporter)
	assert.True(t, cfg.Observability.MetricsEnabled)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DATA_MONTH_POLICY", "exclude")
	t.Setenv("DATA_AGE_BIN_WIDTH", "10")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "exclude", cfg.Data.MonthPolicy)
	assert.Equal(t, 10, cfg.Data.AgeBinWidth)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, "text", cfg.Logger.Format)
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DATA_USERS_FILE=from-file.csv\nSERVER_HOST=0.0.0.0\n"), 0o644))
	t.Setenv("SERVER_HOST", "127.0.0.1")
	// godotenv sets variables the test did not, so clean up after it.
	t.Setenv("DATA_USERS_FILE", "")
	require.NoError(t, os.Unsetenv("DATA_USERS_FILE"))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file.csv", cfg.Data.UsersFile)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SERVER_PORT", "0"},
		{"SERVER_READ_TIMEOUT", "0s"},
		{"DATA_MONTH_POLICY", "ignore"},
		{"DATA_AGE_BIN_WIDTH", "0"},
		{"LOG_LEVEL", "verbose"},
		{"SECURITY_RATE_LIMIT_RPS", "0"},
		{"OBSERVABILITY_TRACE_EXPORTER", "jaeger"},
		{"SERVER_PORT", "not-a-number"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load(missingEnvFile(t))

			assert.Error(t, err)
		})
	}
}
