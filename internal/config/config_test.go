package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.RepairAlgorithm)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.RepairWorkers)
	assert.Equal(t, 100, cfg.MaxBackups)
	assert.True(t, cfg.Backup)
	assert.True(t, cfg.DefragVerify)
	assert.Zero(t, cfg.PageSize)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.ini"))
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idb.ini")
	require.NoError(t, os.WriteFile(path, []byte(`
[log]
level = DEBUG
format = json

[repair]
algorithm = innodb
workers = 3
backup = false

[tablespace]
page_size = 8192
vendor = mariadb

[defrag]
verify = false
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "innodb", cfg.RepairAlgorithm)
	assert.Equal(t, 3, cfg.RepairWorkers)
	assert.Equal(t, 100, cfg.MaxBackups)
	assert.False(t, cfg.Backup)
	assert.Equal(t, 8192, cfg.PageSize)
	assert.Equal(t, "mariadb", cfg.Vendor)
	assert.False(t, cfg.DefragVerify)
	assert.Equal(t, "innodb", cfg.GetString("repair.algorithm"))
	assert.Equal(t, "", cfg.GetString("nodot"))
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ini")
	require.NoError(t, os.WriteFile(path, []byte("[log\nlevel = debug\n"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}
