package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	namespace  string
	kubeconfig string
)

var rootCmd = &cobra.Command{
	Use:   "llamactl",
	Short: "Deploy and smoke-test a llama.cpp inference server on OpenShift",
	Long: `llamactl deploys a pre-built llama.cpp server image serving a GGUF
model (Mistral 7B by default) onto an OpenShift or Kubernetes cluster,
optionally with GPU acceleration, and exercises the deployed HTTP API.

It applies the resource set (namespace, PVC, configmap, deployments,
services, routes) through the cluster API, waits for storage to bind,
and reports the externally reachable route URLs.`,
}

func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version information for the root command
func SetVersion(version, commit, date string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&namespace, "namespace", getEnvOrDefault("LLAMACTL_NAMESPACE", "llm-inference"), "Kubernetes namespace")
	rootCmd.PersistentFlags().StringVar(&kubeconfig, "kubeconfig", os.Getenv("KUBECONFIG"), "Path to kubeconfig (defaults to $KUBECONFIG, then ~/.kube/config, then in-cluster)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
