// Package models defines the GGUF model profile served by the llama.cpp deployment.
package models

import (
	"fmt"
	"strconv"
)

// Profile describes a GGUF model and the llama-server runtime parameters used
// to serve it.
type Profile struct {
	// Model identification
	Name      string // served model name, reported by /v1/models
	SourceURL string // HTTP(S) URL resolving to the GGUF file
	FileName  string // file name on the model volume

	// llama-server runtime parameters
	ContextSize  int
	Threads      int
	Parallel     int
	GPULayers    int // layers offloaded when running the GPU variant
	EmbeddingDim int // advertised embedding size, informational only
}

// DefaultMistral7B returns the profile the stock manifests deploy:
// Mistral-7B-Instruct-v0.2, Q4_K_M quantization.
func DefaultMistral7B() *Profile {
	return &Profile{
		Name:         "mistral-7b-instruct-v0.2",
		SourceURL:    "https://huggingface.co/TheBloke/Mistral-7B-Instruct-v0.2-GGUF/resolve/main/mistral-7b-instruct-v0.2.Q4_K_M.gguf",
		FileName:     "mistral-7b-instruct-v0.2.Q4_K_M.gguf",
		ContextSize:  4096,
		Threads:      8,
		Parallel:     2,
		GPULayers:    33,
		EmbeddingDim: 4096,
	}
}

// ServerArgs builds the llama-server argument vector for this profile.
func (p *Profile) ServerArgs(gpu bool) []string {
	args := []string{
		"--model", "/models/" + p.FileName,
		"--alias", p.Name,
		"--ctx-size", strconv.Itoa(p.ContextSize),
		"--threads", strconv.Itoa(p.Threads),
		"--parallel", strconv.Itoa(p.Parallel),
	}

	if gpu {
		args = append(args, "--n-gpu-layers", strconv.Itoa(p.GPULayers))
	}

	args = append(args,
		"--host", "0.0.0.0",
		"--port", "8080",
		"--metrics",
	)

	return args
}

// ToConfigMapData converts the profile to ConfigMap data format
func (p *Profile) ToConfigMapData() map[string]string {
	return map[string]string{
		"MODEL_NAME":    p.Name,
		"MODEL_URL":     p.SourceURL,
		"MODEL_FILE":    p.FileName,
		"CTX_SIZE":      strconv.Itoa(p.ContextSize),
		"THREADS":       strconv.Itoa(p.Threads),
		"PARALLEL":      strconv.Itoa(p.Parallel),
		"GPU_LAYERS":    strconv.Itoa(p.GPULayers),
		"EMBEDDING_DIM": strconv.Itoa(p.EmbeddingDim),
	}
}

// FromConfigMapData creates a Profile from ConfigMap data
func FromConfigMapData(data map[string]string) *Profile {
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	return &Profile{
		Name:         data["MODEL_NAME"],
		SourceURL:    data["MODEL_URL"],
		FileName:     data["MODEL_FILE"],
		ContextSize:  atoi(data["CTX_SIZE"]),
		Threads:      atoi(data["THREADS"]),
		Parallel:     atoi(data["PARALLEL"]),
		GPULayers:    atoi(data["GPU_LAYERS"]),
		EmbeddingDim: atoi(data["EMBEDDING_DIM"]),
	}
}

// Validate checks if the model profile is valid
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if p.SourceURL == "" {
		return fmt.Errorf("model source URL cannot be empty")
	}
	if p.FileName == "" {
		return fmt.Errorf("model file name cannot be empty")
	}
	if p.ContextSize <= 0 {
		return fmt.Errorf("context size must be positive")
	}
	return nil
}
