package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/modelkit/bootstrap"
	"github.com/kbukum/modelkit/logger"
	"github.com/kbukum/modelkit/models"
)

// batchResult is one JSON line of batch output.
type batchResult struct {
	Line  int    `json:"line"`
	Input string `json:"input"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

type batchOptions struct {
	input       string
	output      string
	concurrency int
	progress    bool
}

func newBatchCmd(root *rootOptions) *cobra.Command {
	var (
		mf modelFlags
		pf paramFlags
		o  batchOptions
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate a completion for every line of a file",
		Long: `Generate a completion for every non-empty input line. Results are written
as JSON lines in input order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if o.concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1")
			}
			m, err := mf.open(cfg)
			if err != nil {
				return err
			}

			app, err := bootstrap.NewApp(cfg,
				bootstrap.WithLogger(logger.GetGlobalLogger()),
				bootstrap.WithSummaryWriter(nil))
			if err != nil {
				closeModel(m)
				return err
			}
			app.OnStop(func(ctx context.Context) error {
				closeModel(m)
				return nil
			})

			in, closeIn, err := openInput(cmd.InOrStdin(), o.input)
			if err != nil {
				closeModel(m)
				return err
			}
			defer closeIn()
			out, closeOut, err := openOutput(cmd.OutOrStdout(), o.output)
			if err != nil {
				closeModel(m)
				return err
			}
			defer closeOut()

			var progress io.Writer
			if o.progress {
				progress = cmd.ErrOrStderr()
			}
			opts := pf.options(cmd.Flags())
			return app.RunTask(cmd.Context(), func(ctx context.Context) error {
				return runBatch(ctx, m, in, out, progress, o.concurrency, opts)
			})
		},
	}
	mf.register(cmd.Flags())
	pf.register(cmd.Flags())
	cmd.Flags().StringVarP(&o.input, "input", "i", "-", "prompt file, one prompt per line (- for stdin)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "result file (default stdout)")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", 4, "concurrent requests")
	cmd.Flags().BoolVar(&o.progress, "progress", false, "draw a progress bar on stderr")
	return cmd
}

// runBatch generates every prompt with at most limit calls in flight.
// A failed prompt is reported in its result line and in the returned error.
// A non-nil progress writer receives a progress bar.
func runBatch(ctx context.Context, m models.Model, in io.Reader, out, progress io.Writer, limit int, opts []models.Option) error {
	prompts, err := readPrompts(in)
	if err != nil {
		return err
	}
	bar := newProgress(progress, len(prompts))

	results := make([]batchResult, len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range prompts {
		results[i] = p
		g.Go(func() error {
			text, err := m.Generate(gctx, p.Input, opts...)
			if bar != nil {
				_ = bar.Add(1)
			}
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].Text = text
			return nil
		})
	}
	_ = g.Wait()
	if bar != nil {
		_ = bar.Finish()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d prompts failed", failed, len(results))
	}
	return nil
}

func newProgress(w io.Writer, total int) *progressbar.ProgressBar {
	if w == nil || total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("generating"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// readPrompts returns the non-empty lines of r with their 1-based line
// numbers.
func readPrompts(r io.Reader) ([]batchResult, error) {
	var prompts []batchResult
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		prompts = append(prompts, batchResult{Line: line, Input: text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	return prompts, nil
}

func openInput(stdin io.Reader, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
