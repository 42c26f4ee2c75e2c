package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ocp-llama/llamactl/pkg/kubernetes"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("LLAMACTL_TEST_VAR", "from-env")

	assert.Equal(t, "from-env", getEnvOrDefault("LLAMACTL_TEST_VAR", "fallback"))
	assert.Equal(t, "fallback", getEnvOrDefault("LLAMACTL_TEST_VAR_MISSING", "fallback"))
}

func TestBuildDeployConfig(t *testing.T) {
	namespace = "llm-inference"
	pvcSize = "20Gi"
	pvcAccessMode = "ReadWriteMany"
	cpuImage = "ghcr.io/ggml-org/llama.cpp:server"
	gpuImage = "ghcr.io/ggml-org/llama.cpp:server-cuda"
	gpuCount = 1

	t.Run("default is cpu only", func(t *testing.T) {
		deployGPU = false
		deployGPUOnly = false

		cfg := buildDeployConfig()
		assert.NoError(t, cfg.Validate())
		assert.Equal(t, []string{kubernetes.VariantCPU}, cfg.Variants)
	})

	t.Run("--gpu adds the gpu variant", func(t *testing.T) {
		deployGPU = true
		deployGPUOnly = false

		cfg := buildDeployConfig()
		assert.Equal(t, []string{kubernetes.VariantCPU, kubernetes.VariantGPU}, cfg.Variants)
	})

	t.Run("--gpu-only drops the cpu variant", func(t *testing.T) {
		deployGPU = false
		deployGPUOnly = true

		cfg := buildDeployConfig()
		assert.Equal(t, []string{kubernetes.VariantGPU}, cfg.Variants)
	})
}

func TestBuildProfile(t *testing.T) {
	t.Run("defaults to mistral 7b", func(t *testing.T) {
		modelName, modelURL, modelFile = "", "", ""

		profile := buildProfile()
		assert.Equal(t, "mistral-7b-instruct-v0.2", profile.Name)
		assert.NoError(t, profile.Validate())
	})

	t.Run("flags override the default profile", func(t *testing.T) {
		modelName = "phi-2"
		modelURL = "https://example.com/phi-2.Q4_K_M.gguf"
		modelFile = "phi-2.Q4_K_M.gguf"
		defer func() { modelName, modelURL, modelFile = "", "", "" }()

		profile := buildProfile()
		assert.Equal(t, "phi-2", profile.Name)
		assert.Equal(t, "phi-2.Q4_K_M.gguf", profile.FileName)
		assert.NoError(t, profile.Validate())
	})
}
