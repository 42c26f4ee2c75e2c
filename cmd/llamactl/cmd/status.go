package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ocp-llama/llamactl/pkg/kubernetes"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the managed resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := kubernetes.DefaultConfig()
		cfg.Namespace = namespace
		cfg.Variants = []string{kubernetes.VariantCPU, kubernetes.VariantGPU}

		manager, _, err := buildManager(cfg)
		if err != nil {
			return err
		}

		status, err := manager.Status(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Namespace: %s\n", status.Namespace)
		fmt.Printf("PVC %s: %s\n\n", cfg.PVCName, status.PVCPhase)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DEPLOYMENT\tREADY\tROUTE")
		for _, v := range status.Variants {
			route := v.RouteURL
			if route == "" {
				route = "-"
			}
			fmt.Fprintf(w, "%s\t%d/%d\t%s\n", v.Name, v.ReadyReplicas, v.DesiredReplicas, route)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
