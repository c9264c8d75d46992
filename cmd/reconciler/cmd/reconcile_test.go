package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestValidateFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	validFile := filepath.Join(tmpDir, "valid.csv")
	if err := os.WriteFile(validFile, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name        string
		filePath    string
		expectError bool
	}{
		{"valid file", validFile, false},
		{"empty path", "", true},
		{"non-existent file", "/non/existent/file.csv", true},
		{"directory instead of file", tmpDir, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileExists(tt.filePath, "test file")

			if tt.expectError && err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error for %s, got: %v", tt.name, err)
			}
		})
	}
}

func TestValidateReconcileFlags(t *testing.T) {
	tmpDir := t.TempDir()
	sourcePath := filepath.Join(tmpDir, "source.csv")
	targetPath := filepath.Join(tmpDir, "target.csv")
	for _, path := range []string{sourcePath, targetPath} {
		if err := os.WriteFile(path, []byte("Date,Amount\n2024-01-15,1.00\n"), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}
	}

	setFlags := func(values map[string]interface{}) {
		viper.Reset()
		viper.Set("source-file", sourcePath)
		viper.Set("target-file", targetPath)
		viper.Set("source-format", "auto")
		viper.Set("target-format", "auto")
		viper.Set("output-format", "console")
		viper.Set("profile", "default")
		for key, value := range values {
			viper.Set(key, value)
		}
	}
	defer viper.Reset()

	tests := []struct {
		name        string
		overrides   map[string]interface{}
		expectError bool
	}{
		{"valid defaults", nil, false},
		{"missing source", map[string]interface{}{"source-file": ""}, true},
		{"missing target", map[string]interface{}{"target-file": ""}, true},
		{"bad source format", map[string]interface{}{"source-format": "xml"}, true},
		{"bad output format", map[string]interface{}{"output-format": "yaml"}, true},
		{"bad profile", map[string]interface{}{"profile": "aggressive"}, true},
		{"negative workers", map[string]interface{}{"workers": -1}, true},
		{"strict profile", map[string]interface{}{"profile": "strict"}, false},
		{"explicit formats", map[string]interface{}{"source-format": "bank", "target-format": "transfer"}, false},
		{"missing output dir", map[string]interface{}{"output-file": "/no/such/dir/report.json"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setFlags(tt.overrides)

			err := validateReconcileFlags(reconcileCmd, nil)
			if tt.expectError && err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error for %s, got: %v", tt.name, err)
			}
		})
	}
}

func TestGetVersionString(t *testing.T) {
	SetVersionInfo("1.2.3", "abc1234", "2024-01-15")
	if got := getVersionString(); got != "1.2.3" {
		t.Errorf("Expected release version string, got %q", got)
	}

	SetVersionInfo("dev", "abc1234", "2024-01-15")
	if got := getVersionString(); got != "dev (commit abc1234, built 2024-01-15)" {
		t.Errorf("Unexpected dev version string: %q", got)
	}
}
