package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "quarters", cfg.Evaluations.SemesterScheme)
	assert.Equal(t, "lms_discussion_changes", cfg.Realtime.Channel)
	assert.Equal(t, "lms", cfg.Redis.KeyPrefix)
	assert.Equal(t, 15*time.Minute, cfg.JWT.Expiration)
	assert.Equal(t, "campus-lms-api", cfg.JWT.Issuer)
	assert.Equal(t, 5*time.Minute, cfg.Reports.ChartCacheTTL)
	assert.Equal(t, int64(20*1024*1024), cfg.Storage.MaxFileSizeBytes)
	assert.Contains(t, cfg.Storage.AllowedMIMEs, "application/pdf")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EVALUATION_SEMESTER_SCHEME", " Academic ")
	t.Setenv("UPLOAD_PUBLIC_BASE_URL", "https://cdn.example.edu/")
	t.Setenv("REPORTS_CHART_CACHE_TTL", "not-a-duration")
	t.Setenv("API_PREFIX", "api/v2/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "academic", cfg.Evaluations.SemesterScheme)
	assert.Equal(t, "https://cdn.example.edu", cfg.Storage.PublicBaseURL)
	assert.Equal(t, 5*time.Minute, cfg.Reports.ChartCacheTTL)
	assert.Equal(t, "/api/v2", cfg.APIPrefix)
}

func TestLoadRejectsDevSecretsInProduction(t *testing.T) {
	t.Setenv("ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "REPORTS_SIGNED_URL_SECRET")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Env:      EnvProduction,
			Port:     8080,
			JWT:      JWTConfig{Secret: "s3cret"},
			Reports:  ReportsConfig{Enabled: true, SignedURLSecret: "other", WorkerConcurrency: 2},
			Realtime: RealtimeConfig{MinReconnectInterval: time.Second, MaxReconnectInterval: time.Minute},
			CORS:     CORSConfig{AllowedOrigins: []string{"https://lms.example.edu"}},
		}
	}

	cases := map[string]struct {
		mutate func(*Config)
		want   string
	}{
		"ok":               {mutate: func(*Config) {}},
		"bad port":         {mutate: func(c *Config) { c.Port = 0 }, want: "PORT"},
		"no workers":       {mutate: func(c *Config) { c.Reports.WorkerConcurrency = 0 }, want: "REPORTS_WORKER_CONCURRENCY"},
		"negative retries": {mutate: func(c *Config) { c.Reports.WorkerRetries = -1 }, want: "REPORTS_WORKER_RETRIES"},
		"wildcard origin":  {mutate: func(c *Config) { c.CORS.AllowedOrigins = append(c.CORS.AllowedOrigins, "*") }, want: "ALLOWED_ORIGINS"},
		"inverted backoff": {mutate: func(c *Config) { c.Realtime.MinReconnectInterval = time.Hour }, want: "REALTIME_MIN_RECONNECT"},
		"reports off skips url secret": {mutate: func(c *Config) {
			c.Reports.Enabled = false
			c.Reports.SignedURLSecret = ""
		}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 90*time.Second, parseDuration(" 90s ", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a , ,b "))
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "lms", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=lms sslmode=disable", cfg.DSN())
}
