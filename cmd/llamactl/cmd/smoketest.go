package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ocp-llama/llamactl/pkg/kubernetes"
	"github.com/ocp-llama/llamactl/pkg/smoketest"
)

var (
	smokeURL     string
	smokeVariant string
	smokeModel   string
)

var smoketestCmd = &cobra.Command{
	Use:   "smoketest",
	Short: "Run the HTTP check sequence against the deployed server",
	Long: `Run the fixed check sequence against the deployed llama.cpp server:
health (gated, retried with backoff), model listing, a native completion,
an OpenAI-compatible chat completion, and the Prometheus metrics page.

The endpoint is resolved from the variant's route unless --url is given.
Per-check failures are reported but only a failed health gate makes the
command exit non-zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := smokeURL
		if endpoint == "" {
			cfg := kubernetes.DefaultConfig()
			cfg.Namespace = namespace
			cfg.Variants = []string{smokeVariant}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			manager, _, err := buildManager(cfg)
			if err != nil {
				return err
			}

			status, err := manager.Status(cmd.Context())
			if err != nil {
				return err
			}
			if len(status.Variants) == 0 || status.Variants[0].RouteURL == "" {
				return fmt.Errorf("no route found for %s in namespace %s; pass --url explicitly", cfg.DeploymentName(smokeVariant), namespace)
			}
			endpoint = status.Variants[0].RouteURL
		}

		runner := smoketest.NewRunner(smoketest.NewClient(endpoint), smokeModel)
		report, err := runner.Run(cmd.Context())
		report.Print(os.Stdout)
		return err
	},
}

func init() {
	rootCmd.AddCommand(smoketestCmd)

	smoketestCmd.Flags().StringVar(&smokeURL, "url", getEnvOrDefault("LLAMACTL_URL", ""), "Endpoint base URL (default: resolved from the variant's route)")
	smoketestCmd.Flags().StringVar(&smokeVariant, "variant", kubernetes.VariantCPU, "Variant whose route to test (cpu or gpu)")
	smoketestCmd.Flags().StringVar(&smokeModel, "model", getEnvOrDefault("LLAMACTL_MODEL_NAME", "mistral-7b-instruct-v0.2"), "Model name for chat completion requests")
}
