package commands

import (
	"testing"

	"github.com/spf13/viper"
)

func TestConfigFlagBound(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	if flag == nil {
		t.Fatal("expected config persistent flag")
	}

	if err := flag.Value.Set("custom.yaml"); err != nil {
		t.Fatalf("failed to set config flag: %v", err)
	}
	flag.Changed = true
	defer func() {
		_ = flag.Value.Set("")
		flag.Changed = false
	}()

	if got := viper.GetString("config"); got != "custom.yaml" {
		t.Errorf("expected config flag visible through viper, got %q", got)
	}
}
