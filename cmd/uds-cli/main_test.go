package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/gavinwade12/udsgateway/explain"
)

func TestLoadConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Run("CreatesMissingFile", func(t *testing.T) {
		viper.Reset()
		file := filepath.Join(t.TempDir(), "udsgw.yaml")

		if err := loadConfig(file); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := os.ReadFile(file)
		if err != nil {
			t.Fatalf("expected the config file to be created: %v", err)
		}
		if !strings.Contains(string(b), explain.DefaultModel) {
			t.Fatalf("expected the defaults to be written. got: %s.", b)
		}
		if strings.Contains(strings.ToLower(string(b)), "apikey") {
			t.Fatalf("expected the API key to be left out of the file. got: %s.", b)
		}
	})

	t.Run("ReadsExistingFile", func(t *testing.T) {
		viper.Reset()
		file := filepath.Join(t.TempDir(), "udsgw.yaml")
		if err := os.WriteFile(file, []byte("host: ecu.local\nretryDelay: 250ms\n"), 0o600); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := loadConfig(file); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h := viper.GetString(hostSettingName); h != "ecu.local" {
			t.Fatalf("want ecu.local. got: %s.", h)
		}
		if d := sessionConfig().RetryDelay; d != 250*time.Millisecond {
			t.Fatalf("want 250ms. got: %s.", d)
		}
	})

	t.Run("RejectsBadFile", func(t *testing.T) {
		viper.Reset()
		file := filepath.Join(t.TempDir(), "udsgw.yaml")
		if err := os.WriteFile(file, []byte("host: [unterminated\n"), 0o600); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := loadConfig(file); err == nil {
			t.Fatal("expected error")
		}
	})
}
