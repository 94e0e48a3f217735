package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
env: "dev"
http_server:
  address: "127.0.0.1:3001"
mongo:
  host: "mongo.internal"
  port: 27018
  user: "root"
  password: "example"
  db: "school"
  collection: "students"
  connect_timeout: 3s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "127.0.0.1:3001", cfg.HTTPServer.Addr)
	assert.Equal(t, DriverMongo, cfg.Storage.Driver)
	assert.Equal(t, Mongo{
		Host:           "mongo.internal",
		Port:           27018,
		User:           "root",
		Password:       "example",
		AuthDB:         "admin",
		Database:       "school",
		Collection:     "students",
		ConnectTimeout: 3 * time.Second,
	}, cfg.Mongo)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `
env: "dev"
http_server:
  address: "127.0.0.1:3001"
`)
	t.Setenv("STORAGE_DRIVER", DriverSQLite)
	t.Setenv("STORAGE_SQLITE_PATH", "/tmp/students.db")
	t.Setenv("MONGO_COLLECTION", "pupils")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/students.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "pupils", cfg.Mongo.Collection)
}

func TestLoadErrors(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("MissingRequired", func(t *testing.T) {
		// Setenv restores ENV after the test; Unsetenv makes it absent.
		t.Setenv("ENV", "")
		require.NoError(t, os.Unsetenv("ENV"))

		_, err := Load(writeConfig(t, `
http_server:
  address: "127.0.0.1:3001"
`))
		assert.Error(t, err)
	})

	t.Run("UnknownDriver", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
env: "dev"
http_server:
  address: "127.0.0.1:3001"
storage:
  driver: "postgres"
`))
		assert.ErrorContains(t, err, "postgres")
	})
}
