package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/maksimkurb/pbr-lens/internal/log"
	"github.com/maksimkurb/pbr-lens/internal/routing"
)

// Snapshot source names accepted in [general] source.
const (
	SourceExec    = "exec"
	SourceFile    = "file"
	SourceNetlink = "netlink"
)

// Config is the pbr-lens TOML configuration.
type Config struct {
	General   *GeneralConfig `toml:"general" json:"general"`
	Output    *OutputConfig  `toml:"output,omitempty" json:"output,omitempty"`
	Scenarios []*Scenario    `toml:"scenario,omitempty" json:"scenario,omitempty"`

	_absConfigFilePath string
}

// GeneralConfig selects the snapshot source and global endpoints.
type GeneralConfig struct {
	// Source selects where the routing snapshot comes from.
	Source string `toml:"source" json:"source" validate:"omitempty,oneof=exec file netlink"`

	// DumpDir is the dump directory for the file source.
	DumpDir string `toml:"dump_dir,omitempty" json:"dump_dir,omitempty"`

	// IPBinary overrides the `ip` binary path for the exec source.
	IPBinary string `toml:"ip_binary,omitempty" json:"ip_binary,omitempty"`

	// APIListen is the HTTP API bind address for the serve command.
	APIListen string `toml:"api_listen,omitempty" json:"api_listen,omitempty" validate:"omitempty,hostname_port"`

	// Resolver is the DNS server used to resolve hostname packet endpoints.
	Resolver string `toml:"resolver,omitempty" json:"resolver,omitempty" validate:"omitempty,hostname_port"`
}

// OutputConfig overrides the verdict line templates of decision traces.
// Placeholders: {{prefix}}, {{interface}}, {{type}}, {{table}}.
type OutputConfig struct {
	SuccessTemplate string `toml:"success_template,omitempty" json:"success_template,omitempty"`
	FailureTemplate string `toml:"failure_template,omitempty" json:"failure_template,omitempty"`
}

// Scenario is one simulated packet, evaluated by the simulate command.
type Scenario struct {
	Name     string `toml:"name" json:"name" validate:"required"`
	Family   uint8  `toml:"family,omitempty" json:"family,omitempty" validate:"omitempty,oneof=4 6"`
	Protocol string `toml:"protocol,omitempty" json:"protocol,omitempty" validate:"omitempty,oneof=tcp udp icmp"`
	// Src and Dst accept an address literal or a hostname (resolved via
	// [general] resolver).
	Src     string `toml:"src" json:"src" validate:"required,host_or_ip"`
	Dst     string `toml:"dst" json:"dst" validate:"required,host_or_ip"`
	SrcPort uint16 `toml:"src_port,omitempty" json:"src_port,omitempty"`
	DstPort uint16 `toml:"dst_port,omitempty" json:"dst_port,omitempty"`
	IIF     string `toml:"iif,omitempty" json:"iif,omitempty"`
	FwMark  uint32 `toml:"fwmark,omitempty" json:"fwmark,omitempty"`
}

// LoadConfig reads and decodes the TOML configuration file.
func LoadConfig(configPath string) (*Config, error) {
	configFile := filepath.Clean(configPath)

	if !filepath.IsAbs(configFile) {
		if path, err := filepath.Abs(configFile); err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %v", err)
		} else {
			configFile = path
		}
	}

	content, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	var config Config
	if err := toml.Unmarshal(content, &config); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			log.Errorf(derr.String())
			row, col := derr.Position()
			log.Errorf("Error at line %d, column %d", row, col)
			return nil, fmt.Errorf("failed to parse config file")
		}
		return nil, fmt.Errorf("failed to parse config file: %v", err)
	}

	config._absConfigFilePath = configFile

	log.Debugf("Configuration file path: %s", configFile)

	return &config, nil
}

// SerializeConfig encodes the configuration back to TOML.
func (c *Config) SerializeConfig() (*bytes.Buffer, error) {
	buf := bytes.Buffer{}
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return &buf, nil
}

// SourceOrDefault returns the configured snapshot source name, defaulting to
// exec.
func (c *Config) SourceOrDefault() string {
	if c.General == nil || c.General.Source == "" {
		return SourceExec
	}
	return c.General.Source
}

// Templates returns the verdict templates, falling back to the defaults for
// any unset field.
func (c *Config) Templates() routing.OutputTemplates {
	templates := routing.DefaultTemplates()
	if c.Output != nil {
		if c.Output.SuccessTemplate != "" {
			templates.Success = c.Output.SuccessTemplate
		}
		if c.Output.FailureTemplate != "" {
			templates.Failure = c.Output.FailureTemplate
		}
	}
	return templates
}
