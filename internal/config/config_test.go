package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("followup:\n  interval_days: 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.FollowUp.IntervalDays)
	assert.Equal(t, 3, cfg.FollowUp.MaxFollowUps)
	assert.Equal(t, "sqlite", cfg.Database.Driver)

	p := cfg.FollowUpPolicy()
	assert.Equal(t, 5*24*time.Hour, p.Interval)
	assert.Equal(t, 3, p.MaxFollowUps)
}

func TestBundledConfigIsValid(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yml"))
	require.NoError(t, err)
	_, v := NormalizeAndValidate(cfg)
	assert.True(t, v.OK(), "%v", v.Errors)
	assert.Len(t, cfg.Sentiment.Positive, 10)
}

func TestEnsureUserConfig(t *testing.T) {
	dir := t.TempDir()

	// no bundled file: defaults are written
	path, err := EnsureUserConfig(filepath.Join(dir, "data"), filepath.Join(dir, "missing.yml"))
	require.NoError(t, err)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().App.Port, cfg.App.Port)

	// existing file is left alone
	require.NoError(t, os.WriteFile(path, []byte("app:\n  port: 9000\n"), 0o644))
	again, err := EnsureUserConfig(filepath.Join(dir, "data"), filepath.Join(dir, "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, path, again)
	cfg, err = Load(again)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.App.Port)
}

func TestNormalizeAndValidate(t *testing.T) {
	cfg := Default()
	cfg.Sentiment.Positive = []string{" offer ", "Offer", "", "not"}
	cfg.Sentiment.Negative = []string{"not"}
	cfg.Database.Driver = " Postgres "
	cfg.Database.DSN = ""
	cfg.Email.Enabled = true
	cfg.Email.Username = ""

	out, v := NormalizeAndValidate(cfg)
	assert.Equal(t, []string{"offer", "not"}, out.Sentiment.Positive)
	assert.Equal(t, "postgres", out.Database.Driver)
	assert.False(t, v.OK())
	assert.Contains(t, v.Errors, "database.dsn is required when database.driver=postgres")
	assert.Contains(t, v.Errors, "email.username is required when email.enabled=true")
	assert.NotEmpty(t, v.Warnings)
}

func TestSaveAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfg := Default()

	_, _, err := SaveAtomic(path, cfg)
	require.NoError(t, err)

	cfg.Polling.CycleSeconds = 600
	_, _, err = SaveAtomic(path, cfg)
	require.NoError(t, err)
	_, err = os.Stat(path + ".bak")
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 600, got.Polling.CycleSeconds)

	cfg.FollowUp.MaxFollowUps = 0
	_, v, err := SaveAtomic(path, cfg)
	require.Error(t, err)
	assert.False(t, v.OK())

	got, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, got.FollowUp.MaxFollowUps)
}

func TestEnvApply(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/internflow")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("INTERNFLOW_PORT", "4000")

	e, err := LoadEnv(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	cfg := e.Apply(Default())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@localhost/internflow", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 4000, cfg.App.Port)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "postgres://app:xxxxx@db:5432/internflow", RedactDSN("postgres://app:s3cret@db:5432/internflow"))
	assert.Equal(t, "host=db user=app password=xxxxx dbname=x", RedactDSN("host=db user=app password=s3cret dbname=x"))
	assert.Equal(t, "postgres://app@db/internflow", RedactDSN("postgres://app@db/internflow"))
	assert.Equal(t, "internflow.db", RedactDSN("internflow.db"))
}

func TestForSave_KeepsEnvironmentOverridesOutOfFile(t *testing.T) {
	onDisk := Default()
	current := Env{DatabaseURL: "postgres://app:s3cret@db/internflow", Port: 9999, LogLevel: "debug"}.Apply(onDisk)

	// the UI sends back what GET showed, with one real edit
	edited := current.Redacted()
	edited.FollowUp.IntervalDays = 2

	out := ForSave(edited, current, onDisk)
	assert.Equal(t, onDisk.Database, out.Database)
	assert.Equal(t, onDisk.App, out.App)
	assert.Equal(t, onDisk.Logging, out.Logging)
	assert.Equal(t, 2, out.FollowUp.IntervalDays)

	// an explicit change is kept
	edited.Logging.Level = "warn"
	assert.Equal(t, "warn", ForSave(edited, current, onDisk).Logging.Level)
}

func TestRestartRequired(t *testing.T) {
	a := Default()
	b := a
	b.FollowUp.IntervalDays++
	assert.False(t, RestartRequired(a, b))
	b.App.Port++
	assert.True(t, RestartRequired(a, b))
}
