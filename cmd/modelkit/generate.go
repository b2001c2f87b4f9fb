package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kbukum/modelkit/config"
	apperrors "github.com/kbukum/modelkit/errors"
	"github.com/kbukum/modelkit/logger"
	"github.com/kbukum/modelkit/models"
)

// modelFlags select and override a model from the command line.
type modelFlags struct {
	model   string
	modelID string
	dialect string
	baseURL string
	apiKey  string
}

func (f *modelFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.model, "model", "m", "", "configured model or preset name")
	fs.StringVar(&f.modelID, "model-id", "", "backend model id, overriding the preset")
	fs.StringVar(&f.dialect, "dialect", "", "wire dialect: openai, ollama, tgi, llamacpp, gemini")
	fs.StringVar(&f.baseURL, "base-url", "", "backend base URL")
	fs.StringVar(&f.apiKey, "api-key", "", "API key (default: the preset's environment variable)")
}

// open builds the named model: a configured entry when cfg has one,
// otherwise the preset of that name.
func (f *modelFlags) open(cfg *config.AppConfig) (models.Model, error) {
	if f.model == "" {
		return nil, apperrors.MissingField("model")
	}
	mc, ok := cfg.Models[f.model]
	if !ok {
		mc = config.ModelConfig{Preset: f.model}
	}
	if f.modelID != "" {
		mc.Model = f.modelID
	}
	if f.dialect != "" {
		mc.Dialect = f.dialect
	}
	if f.baseURL != "" {
		mc.BaseURL = f.baseURL
	}
	if f.apiKey != "" {
		mc.APIKey = f.apiKey
	}
	cat := models.NewCatalog(models.Deps{Logger: logger.Get("models")})
	return cat.New(f.model, mc)
}

// paramFlags are per-call sampling overrides.
type paramFlags struct {
	system            string
	temperature       float64
	topP              float64
	topK              int
	maxNewTokens      int
	repetitionPenalty float64
	stream            bool
}

func (p *paramFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&p.system, "system", "s", "", "system prompt")
	fs.Float64VarP(&p.temperature, "temperature", "t", 0, "sampling temperature")
	fs.Float64Var(&p.topP, "top-p", 0, "nucleus sampling probability")
	fs.IntVar(&p.topK, "top-k", 0, "top-k sampling")
	fs.IntVarP(&p.maxNewTokens, "max-new-tokens", "n", 0, "completion length cap")
	fs.Float64Var(&p.repetitionPenalty, "repetition-penalty", 0, "repetition penalty (local backends)")
	fs.BoolVar(&p.stream, "stream", false, "stream the completion")
}

// options returns only the overrides the user set explicitly.
func (p *paramFlags) options(fs *pflag.FlagSet) []models.Option {
	var opts []models.Option
	if fs.Changed("system") {
		opts = append(opts, models.WithSystem(p.system))
	}
	if fs.Changed("temperature") {
		opts = append(opts, models.WithTemperature(p.temperature))
	}
	if fs.Changed("top-p") {
		opts = append(opts, models.WithTopP(p.topP))
	}
	if fs.Changed("top-k") {
		opts = append(opts, models.WithTopK(p.topK))
	}
	if fs.Changed("max-new-tokens") {
		opts = append(opts, models.WithMaxNewTokens(p.maxNewTokens))
	}
	if fs.Changed("repetition-penalty") {
		opts = append(opts, models.WithRepetitionPenalty(p.repetitionPenalty))
	}
	if p.stream {
		opts = append(opts, models.WithStream(true))
	}
	return opts
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	var (
		mf modelFlags
		pf paramFlags
	)
	cmd := &cobra.Command{
		Use:   "generate [TEXT|-]",
		Short: "Generate one completion",
		Long:  "Generate one completion. TEXT of \"-\" or no TEXT reads the prompt from stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			m, err := mf.open(cfg)
			if err != nil {
				return err
			}
			defer closeModel(m)

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			opts := pf.options(cmd.Flags())
			if s, ok := m.(models.Streamer); ok && pf.stream {
				return streamTo(ctx, out, s, text, opts)
			}
			reply, err := m.Generate(ctx, text, opts...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, reply)
			return err
		},
	}
	mf.register(cmd.Flags())
	pf.register(cmd.Flags())
	return cmd
}

func streamTo(ctx context.Context, w io.Writer, s models.Streamer, text string, opts []models.Option) error {
	ch, err := s.GenerateStream(ctx, text, opts...)
	if err != nil {
		return err
	}
	for chunk := range ch {
		if chunk.Err != nil {
			return chunk.Err
		}
		if _, err := io.WriteString(w, chunk.Content); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w)
	return err
}

// readText returns the single argument, or all of stdin for "-" or no
// argument.
func readText(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

func closeModel(m models.Model) {
	if c, ok := m.(interface{ Close(context.Context) error }); ok {
		_ = c.Close(context.Background())
	}
}
