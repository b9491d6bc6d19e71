package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/Dhanuzh/dchat/internal/config"
	"github.com/Dhanuzh/dchat/internal/provider"
)

func flagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringP("provider", "p", "", "")
	cmd.Flags().StringP("model", "m", "", "")
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return cmd
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		wantProvider string
		wantModel    string
	}{
		{"none", nil, "openai", ""},
		{"provider", []string{"-p", "xai"}, "xai", ""},
		{"model", []string{"-m", "gpt-4o"}, "openai", "gpt-4o"},
		{"provider/model", []string{"-m", "deepseek/deepseek-chat"}, "deepseek", "deepseek-chat"},
		{"slash in model id", []string{"-p", "together", "-m", "meta-llama/Llama-3-70b"}, "together", "meta-llama/Llama-3-70b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &app{cfg: &config.Config{DefaultProvider: "openai"}, registry: provider.NewDefaultRegistry()}
			a.applyFlags(flagCmd(t, tt.args...))
			if a.cfg.DefaultProvider != tt.wantProvider {
				t.Errorf("provider: want %s, got %s", tt.wantProvider, a.cfg.DefaultProvider)
			}
			if a.cfg.DefaultModel != tt.wantModel {
				t.Errorf("model: want %s, got %s", tt.wantModel, a.cfg.DefaultModel)
			}
		})
	}
}

func TestReadAttachments(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "pixel.png")
	data := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if err := os.WriteFile(png, data, 0600); err != nil {
		t.Fatal(err)
	}

	refs, err := readAttachments([]string{png})
	if err != nil {
		t.Fatalf("readAttachments: %v", err)
	}
	if len(refs) != 1 || refs[0].FileData == nil {
		t.Fatalf("Expected one inline attachment, got %+v", refs)
	}
	fd := refs[0].FileData
	if fd.Type != "image/png" || !strings.HasPrefix(fd.Data, "data:image/png;base64,") {
		t.Errorf("Unexpected attachment %s %.40s", fd.Type, fd.Data)
	}
	if fd.Size != int64(len(data)) {
		t.Errorf("Size: want %d, got %d", len(data), fd.Size)
	}

	if _, err := readAttachments([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("Expected error for missing file")
	}
}
