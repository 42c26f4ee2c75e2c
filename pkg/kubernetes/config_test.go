package kubernetes

import "testing"

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default", func(c *Config) {}, false},
		{"empty namespace", func(c *Config) { c.Namespace = "" }, true},
		{"empty pvc name", func(c *Config) { c.PVCName = "" }, true},
		{"empty configmap name", func(c *Config) { c.ConfigMapName = "" }, true},
		{"empty image", func(c *Config) { c.Image = "" }, true},
		{"no variants", func(c *Config) { c.Variants = nil }, true},
		{"unknown variant", func(c *Config) { c.Variants = []string{"tpu"} }, true},
		{"both variants", func(c *Config) { c.Variants = []string{VariantCPU, VariantGPU} }, false},
		{"bad access mode", func(c *Config) { c.PVCAccessMode = "ReadOnlyMany" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVariantNames(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.DeploymentName(VariantCPU); got != "llama-cpp" {
		t.Errorf("DeploymentName(cpu) = %q, want llama-cpp", got)
	}
	if got := cfg.DeploymentName(VariantGPU); got != "llama-cpp-gpu" {
		t.Errorf("DeploymentName(gpu) = %q, want llama-cpp-gpu", got)
	}
	if cfg.ServiceName(VariantCPU) != cfg.DeploymentName(VariantCPU) {
		t.Error("service name should match deployment name")
	}
	if cfg.RouteName(VariantGPU) != cfg.DeploymentName(VariantGPU) {
		t.Error("route name should match deployment name")
	}
}

func TestHasVariant(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Variants = []string{VariantCPU}

	if !cfg.HasVariant(VariantCPU) {
		t.Error("expected cpu variant to be enabled")
	}
	if cfg.HasVariant(VariantGPU) {
		t.Error("expected gpu variant to be disabled")
	}
}
