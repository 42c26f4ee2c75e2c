package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/ocp-llama/llamactl/pkg/kubernetes"
	"github.com/ocp-llama/llamactl/pkg/monitor"
	"github.com/ocp-llama/llamactl/pkg/smoketest"
)

var (
	monitorURL      string
	monitorVariant  string
	monitorPort     string
	monitorInterval time.Duration
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Probe the deployment periodically and expose status and metrics",
	Long: `Run a long-lived monitor that probes the inference endpoint's /health
and reads back deployment state on a fixed interval, serving the results
on /healthz, /status and Prometheus /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := kubernetes.DefaultConfig()
		cfg.Namespace = namespace
		cfg.Variants = []string{monitorVariant}

		manager, _, err := buildManager(cfg)
		if err != nil {
			return err
		}

		endpoint := monitorURL
		if endpoint == "" {
			status, statusErr := manager.Status(cmd.Context())
			if statusErr != nil {
				return statusErr
			}
			if len(status.Variants) == 0 || status.Variants[0].RouteURL == "" {
				return fmt.Errorf("no route found for %s in namespace %s; pass --url explicitly", cfg.DeploymentName(monitorVariant), namespace)
			}
			endpoint = status.Variants[0].RouteURL
		}

		log.Printf("Monitoring %s (deployment %s/%s)", endpoint, namespace, cfg.DeploymentName(monitorVariant))

		m := monitor.New(smoketest.NewClient(endpoint), manager, monitorInterval, monitorPort)
		return m.Start(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringVar(&monitorURL, "url", getEnvOrDefault("LLAMACTL_URL", ""), "Endpoint base URL (default: resolved from the variant's route)")
	monitorCmd.Flags().StringVar(&monitorVariant, "variant", kubernetes.VariantCPU, "Variant to monitor (cpu or gpu)")
	monitorCmd.Flags().StringVar(&monitorPort, "port", getEnvOrDefault("PORT", "9090"), "Monitor HTTP port")
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", monitor.DefaultProbeInterval, "Probe interval")
}
