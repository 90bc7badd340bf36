package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.MinConfidence != 0.5 || cfg.SampleInterval != 500*time.Millisecond || cfg.DemoInterval != 3*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := strings.Join([]string{
		"SIGNSPEAK_ADDR=:9000",
		"SIGNSPEAK_MODE=neural",
		"SIGNSPEAK_VOICE=fr",
		"SIGNSPEAK_S3_SECRET_KEY=from-file",
	}, "\n")
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SIGNSPEAK_VOICE", "de")
	t.Setenv("SIGNSPEAK_MIN_CONFIDENCE", "0.7")
	t.Setenv("SIGNSPEAK_DATA_DIR", dir)
	t.Cleanup(func() {
		os.Unsetenv("SIGNSPEAK_ADDR")
		os.Unsetenv("SIGNSPEAK_MODE")
		os.Unsetenv("SIGNSPEAK_S3_SECRET_KEY")
	})

	cfg, err := Load(envFile, []string{"-addr", ":7000", "-sample-interval", "250ms"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":7000" {
		t.Errorf("Addr = %q, flag should win", cfg.Addr)
	}
	if cfg.Mode != "neural" {
		t.Errorf("Mode = %q, want value from .env", cfg.Mode)
	}
	if cfg.Voice != "de" {
		t.Errorf("Voice = %q, environment should win over .env", cfg.Voice)
	}
	if cfg.MinConfidence != 0.7 {
		t.Errorf("MinConfidence = %v", cfg.MinConfidence)
	}
	if cfg.SampleInterval != 250*time.Millisecond {
		t.Errorf("SampleInterval = %v", cfg.SampleInterval)
	}
	if cfg.S3SecretKey != "from-file" {
		t.Errorf("S3SecretKey = %q", cfg.S3SecretKey)
	}
	if cfg.DBPath() != filepath.Join(dir, "signspeak.db") {
		t.Errorf("DBPath() = %q", cfg.DBPath())
	}
}

func TestLoad_MissingEnvFile(t *testing.T) {
	t.Setenv("SIGNSPEAK_DATA_DIR", t.TempDir())
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env"), nil); err != nil {
		t.Errorf("missing env file should be ignored: %v", err)
	}
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("SIGNSPEAK_CAMERA", "front")
	_, err := Load("", nil)
	if err == nil || !strings.Contains(err.Error(), "SIGNSPEAK_CAMERA") {
		t.Errorf("err = %v, want SIGNSPEAK_CAMERA parse error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad mode", func(c *Config) { c.Mode = "gesture" }, "mode"},
		{"confidence above one", func(c *Config) { c.MinConfidence = 1.5 }, "confidence"},
		{"zero interval", func(c *Config) { c.SampleInterval = 0 }, "intervals"},
		{"s3 without bucket", func(c *Config) { c.StorageBackend = StorageS3 }, "bucket"},
		{"unknown storage", func(c *Config) { c.StorageBackend = "ftp" }, "storage"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
}

func TestUploadsDir(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/data"
	if cfg.UploadsDir() != filepath.Join("/data", "uploads") {
		t.Errorf("UploadsDir() = %q", cfg.UploadsDir())
	}
	cfg.StorageDir = "/srv/files"
	if cfg.UploadsDir() != "/srv/files" {
		t.Errorf("UploadsDir() = %q", cfg.UploadsDir())
	}
}

func TestLoad_S3PublicURL(t *testing.T) {
	t.Setenv("SIGNSPEAK_S3_PUBLIC_URL", "https://cdn.example.com")
	t.Setenv("SIGNSPEAK_DATA_DIR", t.TempDir())

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.S3PublicURL != "https://cdn.example.com" {
		t.Errorf("S3PublicURL from env = %q", cfg.S3PublicURL)
	}

	cfg, err = Load("", []string{"-s3-public-url", "https://files.example.org"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.S3PublicURL != "https://files.example.org" {
		t.Errorf("S3PublicURL from flag = %q", cfg.S3PublicURL)
	}
}

func TestVideosDir(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/data"
	if got := cfg.VideosDir(); got != filepath.Join("/data", "videos") {
		t.Errorf("VideosDir() = %q", got)
	}
}
