package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maksimkurb/pbr-lens/internal/routing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pbr-lens.conf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const sampleConfig = `
[general]
source = "file"
dump_dir = "/var/lib/pbr-lens/dump"
api_listen = "127.0.0.1:8080"
resolver = "1.1.1.1:53"

[output]
success_template = "OK via {{interface}}"

[[scenario]]
name = "arc-ping"
family = 4
protocol = "icmp"
src = "100.86.208.70"
dst = "100.115.92.131"
iif = "eth1"

[[scenario]]
name = "web"
protocol = "tcp"
src = "192.168.1.10"
dst = "example.com"
dst_port = 443
fwmark = 32
`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.General == nil || cfg.General.Source != SourceFile {
		t.Fatalf("General = %+v, want file source", cfg.General)
	}
	if cfg.General.DumpDir != "/var/lib/pbr-lens/dump" {
		t.Errorf("DumpDir = %q", cfg.General.DumpDir)
	}
	if cfg.General.APIListen != "127.0.0.1:8080" {
		t.Errorf("APIListen = %q", cfg.General.APIListen)
	}

	if len(cfg.Scenarios) != 2 {
		t.Fatalf("got %d scenarios, want 2", len(cfg.Scenarios))
	}
	first := cfg.Scenarios[0]
	if first.Name != "arc-ping" || first.Family != 4 || first.Protocol != "icmp" ||
		first.Src != "100.86.208.70" || first.Dst != "100.115.92.131" || first.IIF != "eth1" {
		t.Errorf("scenario[0] = %+v", first)
	}
	second := cfg.Scenarios[1]
	if second.Dst != "example.com" || second.DstPort != 443 || second.FwMark != 32 {
		t.Errorf("scenario[1] = %+v", second)
	}

	if err := cfg.ValidateConfig(); err != nil {
		t.Errorf("ValidateConfig failed: %v", err)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.conf")); err == nil {
		t.Fatal("LoadConfig succeeded on a missing file")
	}
}

func TestLoadConfig_BadTOML(t *testing.T) {
	path := writeConfig(t, "[general\nsource = exec")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig succeeded on malformed TOML")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		config      *Config
		wantErr     bool
		wantMessage string
	}{
		{
			name:    "missing general section",
			config:  &Config{},
			wantErr: true,
		},
		{
			name:   "minimal valid",
			config: &Config{General: &GeneralConfig{}},
		},
		{
			name:        "unknown source",
			config:      &Config{General: &GeneralConfig{Source: "sysfs"}},
			wantErr:     true,
			wantMessage: "general.source",
		},
		{
			name:        "file source without dump_dir",
			config:      &Config{General: &GeneralConfig{Source: SourceFile}},
			wantErr:     true,
			wantMessage: "general.dump_dir",
		},
		{
			name:        "api_listen without port",
			config:      &Config{General: &GeneralConfig{APIListen: "127.0.0.1"}},
			wantErr:     true,
			wantMessage: "host:port",
		},
		{
			name: "scenario missing dst",
			config: &Config{
				General:   &GeneralConfig{},
				Scenarios: []*Scenario{{Name: "s1", Src: "10.0.0.1"}},
			},
			wantErr:     true,
			wantMessage: "dst",
		},
		{
			name: "scenario with bad family",
			config: &Config{
				General:   &GeneralConfig{},
				Scenarios: []*Scenario{{Name: "s1", Src: "10.0.0.1", Dst: "10.0.0.2", Family: 5}},
			},
			wantErr:     true,
			wantMessage: "family",
		},
		{
			name: "scenario dst neither ip nor hostname",
			config: &Config{
				General:   &GeneralConfig{},
				Scenarios: []*Scenario{{Name: "s1", Src: "10.0.0.1", Dst: "not a host!"}},
			},
			wantErr:     true,
			wantMessage: "dst",
		},
		{
			name: "duplicate scenario names",
			config: &Config{
				General: &GeneralConfig{},
				Scenarios: []*Scenario{
					{Name: "same", Src: "10.0.0.1", Dst: "10.0.0.2"},
					{Name: "same", Src: "10.0.0.3", Dst: "10.0.0.4"},
				},
			},
			wantErr:     true,
			wantMessage: "duplicate scenario name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.ValidateConfig()
			if tt.wantErr {
				if err == nil {
					t.Fatal("ValidateConfig succeeded, want error")
				}
				if tt.wantMessage != "" && !strings.Contains(err.Error(), tt.wantMessage) {
					t.Errorf("error %q does not mention %q", err, tt.wantMessage)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateConfig failed: %v", err)
			}
		})
	}
}

func TestSourceOrDefault(t *testing.T) {
	if got := (&Config{}).SourceOrDefault(); got != SourceExec {
		t.Errorf("SourceOrDefault() = %q, want exec", got)
	}
	cfg := &Config{General: &GeneralConfig{Source: SourceNetlink}}
	if got := cfg.SourceOrDefault(); got != SourceNetlink {
		t.Errorf("SourceOrDefault() = %q, want netlink", got)
	}
}

func TestTemplates(t *testing.T) {
	defaults := routing.DefaultTemplates()

	cfg := &Config{}
	if got := cfg.Templates(); got != defaults {
		t.Errorf("Templates() = %+v, want defaults", got)
	}

	cfg = &Config{Output: &OutputConfig{SuccessTemplate: "via {{interface}}"}}
	got := cfg.Templates()
	if got.Success != "via {{interface}}" {
		t.Errorf("Success = %q", got.Success)
	}
	if got.Failure != defaults.Failure {
		t.Errorf("Failure = %q, want default", got.Failure)
	}
}

func TestSerializeConfig_RoundTrip(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	buf, err := cfg.SerializeConfig()
	if err != nil {
		t.Fatalf("SerializeConfig failed: %v", err)
	}

	reloaded, err := LoadConfig(writeConfig(t, buf.String()))
	if err != nil {
		t.Fatalf("reloading serialized config failed: %v", err)
	}
	if reloaded.General.DumpDir != cfg.General.DumpDir {
		t.Errorf("DumpDir changed across round trip: %q", reloaded.General.DumpDir)
	}
	if len(reloaded.Scenarios) != len(cfg.Scenarios) {
		t.Errorf("scenario count changed across round trip: %d", len(reloaded.Scenarios))
	}
}
