package configs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yeisme/quickdrop/pkg/configs"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := configs.Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	if cfg.Drop.ActiveTTL != time.Minute {
		t.Errorf("drop.active_ttl = %v, want 1m", cfg.Drop.ActiveTTL)
	}

	if cfg.Drop.ConsumedGrace != 10*time.Minute || cfg.Drop.Grace != 15*time.Second {
		t.Errorf("drop grace = %v, consumed grace = %v", cfg.Drop.Grace, cfg.Drop.ConsumedGrace)
	}

	if got := cfg.Auth.IdentityHeaders(); len(got) != 2 || got[0] != "X-Auth-Request-Email" {
		t.Errorf("identity headers = %v", got)
	}
}

func TestInitConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	body := []byte("server:\n  port: 9090\n  reload_config: false\ns3:\n  type: memory\nkv:\n  type: memory\n")

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), body, 0o600); err != nil {
		t.Fatal(err)
	}

	if err := configs.InitConfig(dir); err != nil {
		t.Fatalf("init config: %v", err)
	}

	cfg := configs.GetConfig()
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}

	if cfg.S3.Type != configs.S3TypeMemory {
		t.Errorf("s3.type = %q", cfg.S3.Type)
	}

	if cfg.Server.Addr() != "0.0.0.0:9090" {
		t.Errorf("addr = %q", cfg.Server.Addr())
	}
}

func TestInitConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := configs.InitConfig(path); err == nil {
		t.Fatal("expected validation error for port 0")
	}
}

func TestWriteDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quickdrop.yaml")

	if err := configs.WriteDefaults(path); err != nil {
		t.Fatalf("write defaults: %v", err)
	}

	if err := configs.WriteDefaults(path); err == nil {
		t.Fatal("second write should refuse to overwrite")
	}

	if err := configs.InitConfig(path); err != nil {
		t.Fatalf("reload written defaults: %v", err)
	}

	if got, want := configs.GetConfig().Drop.ReaperBatch, configs.Defaults().Drop.ReaperBatch; got != want {
		t.Errorf("drop.reaper_batch = %d, want %d", got, want)
	}
}
