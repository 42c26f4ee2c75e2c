// Package kubernetes provides Kubernetes client and resource management functionality.
package kubernetes

import (
	"fmt"
	"time"
)

// Variant names for the two deployment flavours.
const (
	VariantCPU = "cpu"
	VariantGPU = "gpu"
)

// Config holds the deployment configuration
type Config struct {
	Namespace     string
	ConfigMapName string
	PVCName       string
	PVCSize       string // e.g. "20Gi"
	PVCAccessMode string // "ReadWriteMany" or "ReadWriteOnce"
	Image         string // llama.cpp server image (CPU variant)
	GPUImage      string // llama.cpp CUDA server image (GPU variant)
	GPUCount      int    // GPUs requested by the GPU variant
	Variants      []string

	PVCBindTimeout time.Duration
}

// DefaultConfig returns the configuration matching the stock manifests.
func DefaultConfig() *Config {
	return &Config{
		Namespace:      "llm-inference",
		ConfigMapName:  "llama-cpp-config",
		PVCName:        "model-storage",
		PVCSize:        "20Gi",
		PVCAccessMode:  "ReadWriteMany",
		Image:          "ghcr.io/ggml-org/llama.cpp:server",
		GPUImage:       "ghcr.io/ggml-org/llama.cpp:server-cuda",
		GPUCount:       1,
		Variants:       []string{VariantCPU},
		PVCBindTimeout: 2 * time.Minute,
	}
}

// DeploymentName returns the deployment name for a variant.
func (c *Config) DeploymentName(variant string) string {
	if variant == VariantGPU {
		return "llama-cpp-gpu"
	}
	return "llama-cpp"
}

// ServiceName returns the service name for a variant.
func (c *Config) ServiceName(variant string) string {
	return c.DeploymentName(variant)
}

// RouteName returns the route name for a variant.
func (c *Config) RouteName(variant string) string {
	return c.DeploymentName(variant)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("namespace cannot be empty")
	}
	if c.PVCName == "" {
		return fmt.Errorf("pvc name cannot be empty")
	}
	if c.ConfigMapName == "" {
		return fmt.Errorf("configmap name cannot be empty")
	}
	if c.Image == "" {
		return fmt.Errorf("image cannot be empty")
	}
	if len(c.Variants) == 0 {
		return fmt.Errorf("at least one variant must be enabled")
	}
	for _, v := range c.Variants {
		if v != VariantCPU && v != VariantGPU {
			return fmt.Errorf("unknown variant %q", v)
		}
	}
	switch c.PVCAccessMode {
	case "ReadWriteMany", "ReadWriteOnce":
	default:
		return fmt.Errorf("unsupported PVC access mode %q", c.PVCAccessMode)
	}
	return nil
}

// HasVariant reports whether the given variant is enabled.
func (c *Config) HasVariant(variant string) bool {
	for _, v := range c.Variants {
		if v == variant {
			return true
		}
	}
	return false
}
