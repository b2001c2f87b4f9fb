package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kbukum/modelkit/config"
	"github.com/kbukum/modelkit/logger"
)

const serviceName = "modelkit"

// rootOptions are the persistent flags.
type rootOptions struct {
	configFile string
	envFile    string
	verbose    bool
	noColor    bool
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "modelkit",
		Short: "One generate call over local and hosted language models",
		Long: `modelkit drives locally served open-weights chat models (ChatGLM, Qwen,
Baichuan, MOSS, Vicuna, WizardLM, BELLE, Llama-2, Mistral) and hosted APIs
(OpenAI, Groq, SambaNova, Gemini, Anthropic) through one Generate call.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if o.noColor {
				color.NoColor = true
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&o.configFile, "config", "c", "", "config file (default: search for config.yml)")
	cmd.PersistentFlags().StringVar(&o.envFile, "env-file", "", ".env file (default: search for .env)")
	cmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().BoolVar(&o.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newGenerateCmd(o),
		newBatchCmd(o),
		newModelsCmd(o),
		newRenderCmd(),
		newServeCmd(o),
		newTokenCmd(o),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig reads, defaults and validates the configuration, then
// initializes logging from it.
func (o *rootOptions) loadConfig() (*config.AppConfig, error) {
	var opts []config.LoaderOption
	if o.configFile != "" {
		opts = append(opts, config.WithConfigFile(o.configFile))
	}
	if o.envFile != "" {
		opts = append(opts, config.WithEnvFile(o.envFile))
	}

	cfg := &config.AppConfig{}
	if err := config.Load(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	if o.noColor {
		cfg.Logging.NoColor = true
	}
	logger.Init(cfg.Logging)
	return cfg, nil
}
