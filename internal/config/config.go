// Package config loads idb-utils settings from an ini file. Missing files
// and missing keys fall back to the defaults from New.
package config

import (
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

/*
[log]
level  = info
format = text
file   =

[repair]
algorithm   = auto
workers     = 0
max_backups = 100
backup      = true

[tablespace]
page_size = 0
vendor    =

[defrag]
verify = true
*/
type Cfg struct {
	Raw *ini.File

	LogLevel  string
	LogFormat string
	LogFile   string

	RepairAlgorithm string
	RepairWorkers   int
	MaxBackups      int
	Backup          bool

	PageSize int
	Vendor   string

	DefragVerify bool
}

func New() *Cfg {
	return &Cfg{
		Raw:             ini.Empty(),
		LogLevel:        "warn",
		LogFormat:       "text",
		RepairAlgorithm: "auto",
		RepairWorkers:   runtime.GOMAXPROCS(0),
		MaxBackups:      100,
		Backup:          true,
		DefragVerify:    true,
	}
}

// Load reads path over the defaults. An empty path or a file that does not
// exist yields the defaults; a file that exists but cannot be parsed is an
// error.
func Load(path string) (*Cfg, error) {
	cfg := New()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	cfg.Raw = f
	cfg.parseLogCfg(f.Section("log"))
	cfg.parseRepairCfg(f.Section("repair"))
	cfg.parseTablespaceCfg(f.Section("tablespace"))
	cfg.parseDefragCfg(f.Section("defrag"))
	return cfg, nil
}

func valueAsString(section *ini.Section, key, def string) string {
	v := section.Key(key).MustString(def)
	if v == "" {
		return def
	}
	return v
}

func (cfg *Cfg) parseLogCfg(section *ini.Section) {
	cfg.LogLevel = strings.ToLower(valueAsString(section, "level", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(valueAsString(section, "format", cfg.LogFormat))
	cfg.LogFile = valueAsString(section, "file", cfg.LogFile)
}

func (cfg *Cfg) parseRepairCfg(section *ini.Section) {
	cfg.RepairAlgorithm = valueAsString(section, "algorithm", cfg.RepairAlgorithm)
	if w := section.Key("workers").MustInt(0); w > 0 {
		cfg.RepairWorkers = w
	}
	if n := section.Key("max_backups").MustInt(cfg.MaxBackups); n > 0 {
		cfg.MaxBackups = n
	}
	cfg.Backup = section.Key("backup").MustBool(cfg.Backup)
}

func (cfg *Cfg) parseTablespaceCfg(section *ini.Section) {
	cfg.PageSize = section.Key("page_size").MustInt(cfg.PageSize)
	cfg.Vendor = valueAsString(section, "vendor", cfg.Vendor)
}

func (cfg *Cfg) parseDefragCfg(section *ini.Section) {
	cfg.DefragVerify = section.Key("verify").MustBool(cfg.DefragVerify)
}

// GetString returns a raw "section.key" value.
func (cfg *Cfg) GetString(key string) string {
	i := strings.Index(key, ".")
	if i < 0 {
		return ""
	}
	return cfg.Raw.Section(key[:i]).Key(key[i+1:]).String()
}
