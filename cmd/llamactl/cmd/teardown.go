package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/ocp-llama/llamactl/pkg/kubernetes"
)

var deleteNamespace bool

var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Delete the managed resources",
	Long: `Delete the managed resources in reverse order of creation: routes,
services, deployments, configmap, PVC. Missing resources are tolerated.
The namespace is kept unless --delete-namespace is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := kubernetes.DefaultConfig()
		cfg.Namespace = namespace
		cfg.Variants = []string{kubernetes.VariantCPU, kubernetes.VariantGPU}

		manager, _, err := buildManager(cfg)
		if err != nil {
			return err
		}

		log.Printf("Tearing down llama.cpp resources in namespace %s", namespace)
		if err := manager.Teardown(cmd.Context(), deleteNamespace); err != nil {
			return err
		}
		log.Printf("✅ Teardown complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(teardownCmd)

	teardownCmd.Flags().BoolVar(&deleteNamespace, "delete-namespace", false, "Also delete the namespace")
}
