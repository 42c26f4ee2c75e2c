package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/ocp-llama/llamactl/pkg/kubernetes"
	"github.com/ocp-llama/llamactl/pkg/models"
	"github.com/ocp-llama/llamactl/pkg/rbac"
)

var (
	deployGPU     bool
	deployGPUOnly bool
	modelName     string
	modelURL      string
	modelFile     string
	pvcSize       string
	pvcAccessMode string
	pvcTimeout    time.Duration
	skipPreflight bool
	cpuImage      string
	gpuImage      string
	gpuCount      int
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Apply the llama.cpp resource set to the cluster",
	Long: `Apply the full resource set in order: namespace, model storage PVC,
model configmap, then deployment, service and route per enabled variant.

Already-existing resources are tolerated, so re-running deploy is
idempotent. After the storage claim is applied the command waits a
bounded time for it to bind; a timeout is reported as a warning and
deployment proceeds, since many provisioners bind on first consumer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildDeployConfig()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		profile := buildProfile()
		if err := profile.Validate(); err != nil {
			return fmt.Errorf("invalid model profile: %w", err)
		}

		manager, clients, err := buildManager(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		if !skipPreflight {
			includeRoutes := kubernetes.RouteAPIAvailable(clients.Discovery)
			if err := rbac.VerifyPermissions(ctx, clients.Clientset, cfg.Namespace, includeRoutes); err != nil {
				return err
			}
			log.Printf("Preflight permission check passed")
		}

		if cfg.HasVariant(kubernetes.VariantGPU) {
			gpuNodes, err := manager.DetectGPUNodes(ctx)
			if err != nil {
				log.Printf("⚠️  Could not inspect nodes for GPUs: %v", err)
			} else if gpuNodes == 0 {
				log.Printf("⚠️  No schedulable nodes advertise nvidia.com/gpu; the GPU variant will stay Pending")
			} else {
				log.Printf("Found %d GPU node(s)", gpuNodes)
			}
		}

		log.Printf("🚀 Deploying %s to namespace %s", profile.Name, cfg.Namespace)

		if err := manager.EnsureStorage(ctx, profile); err != nil {
			return err
		}

		if err := manager.WaitForPVCBound(ctx, cfg.PVCBindTimeout); err != nil {
			log.Printf("⚠️  PVC %s not bound within %s: %v (continuing, provisioner may bind on first consumer)",
				cfg.PVCName, cfg.PVCBindTimeout, err)
		}

		if err := manager.EnsureWorkloads(ctx, profile); err != nil {
			return err
		}

		status, err := manager.Status(ctx)
		if err != nil {
			return err
		}
		for _, v := range status.Variants {
			if v.RouteURL != "" {
				log.Printf("✅ %s exposed at %s", v.Name, v.RouteURL)
			} else {
				log.Printf("✅ %s deployed (no external route)", v.Name)
			}
		}

		return nil
	},
}

func buildDeployConfig() *kubernetes.Config {
	cfg := kubernetes.DefaultConfig()
	cfg.Namespace = namespace
	cfg.PVCSize = pvcSize
	cfg.PVCAccessMode = pvcAccessMode
	cfg.PVCBindTimeout = pvcTimeout
	cfg.Image = cpuImage
	cfg.GPUImage = gpuImage
	cfg.GPUCount = gpuCount

	switch {
	case deployGPUOnly:
		cfg.Variants = []string{kubernetes.VariantGPU}
	case deployGPU:
		cfg.Variants = []string{kubernetes.VariantCPU, kubernetes.VariantGPU}
	default:
		cfg.Variants = []string{kubernetes.VariantCPU}
	}

	return cfg
}

func buildProfile() *models.Profile {
	profile := models.DefaultMistral7B()
	if modelName != "" {
		profile.Name = modelName
	}
	if modelURL != "" {
		profile.SourceURL = modelURL
	}
	if modelFile != "" {
		profile.FileName = modelFile
	}
	return profile
}

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().BoolVar(&deployGPU, "gpu", false, "Also deploy the GPU-accelerated variant")
	deployCmd.Flags().BoolVar(&deployGPUOnly, "gpu-only", false, "Deploy only the GPU-accelerated variant")
	deployCmd.Flags().StringVar(&modelName, "model-name", getEnvOrDefault("LLAMACTL_MODEL_NAME", ""), "Served model name (default Mistral 7B Instruct)")
	deployCmd.Flags().StringVar(&modelURL, "model-url", getEnvOrDefault("LLAMACTL_MODEL_URL", ""), "GGUF download URL")
	deployCmd.Flags().StringVar(&modelFile, "model-file", getEnvOrDefault("LLAMACTL_MODEL_FILE", ""), "GGUF file name on the model volume")
	deployCmd.Flags().StringVar(&pvcSize, "pvc-size", getEnvOrDefault("LLAMACTL_PVC_SIZE", "20Gi"), "Model storage claim size")
	deployCmd.Flags().StringVar(&pvcAccessMode, "pvc-access-mode", getEnvOrDefault("LLAMACTL_PVC_ACCESS_MODE", "ReadWriteMany"), "Model storage access mode (ReadWriteMany or ReadWriteOnce)")
	deployCmd.Flags().DurationVar(&pvcTimeout, "pvc-timeout", 2*time.Minute, "How long to wait for the model storage claim to bind")
	deployCmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip the RBAC preflight check")
	deployCmd.Flags().StringVar(&cpuImage, "image", getEnvOrDefault("LLAMACTL_IMAGE", "ghcr.io/ggml-org/llama.cpp:server"), "llama.cpp server image")
	deployCmd.Flags().StringVar(&gpuImage, "gpu-image", getEnvOrDefault("LLAMACTL_GPU_IMAGE", "ghcr.io/ggml-org/llama.cpp:server-cuda"), "llama.cpp CUDA server image")
	deployCmd.Flags().IntVar(&gpuCount, "gpu-count", 1, "GPUs requested by the GPU variant")
}
