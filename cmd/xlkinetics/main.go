// Package main provides the CLI entry point for xlkinetics.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/javajack/xlkinetics"
	"github.com/spf13/cobra"
)

var (
	cfg          *Config
	layoutsFile  string
	outputDir    string
	logLevel     string
	logFormat    string
	showProgress bool
	layoutKey    string
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "xlkinetics",
		Short: "Reshape plate-reader kinetic workbooks into long-format reports",
		Long: `xlkinetics reads a microplate-reader kinetic export (one sheet per plate)
and writes long-format xlsx reports with color-scale annotations beside it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("log-format") || cfg.LogFormat == "" {
				cfg.LogFormat = logFormat
			}
			if layoutsFile != "" {
				cfg.LayoutsFile = layoutsFile
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}
			return registerLayouts(cfg.LayoutsFile)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&layoutsFile, "layouts", "", "YAML file with additional layouts")
	pf.StringVarP(&outputDir, "out", "o", "", "Output directory (default: beside the source file)")
	pf.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "text", "Log format: text, json")
	pf.BoolVar(&showProgress, "progress", false, "Print progress to stderr")

	rootCmd.AddCommand(
		newModeCmd("intensity", "Process a single-channel (intensity) workbook", xlkinetics.RunIntensity),
		newModeCmd("ratio", "Process a dual-channel (ratio) workbook", xlkinetics.RunRatio),
		newRunCmd(),
		newLayoutsCmd(),
		newValidateCmd(),
		newDescribeCmd(),
	)
	return rootCmd
}

type runFunc func(path string, opts ...xlkinetics.Option) ([]string, error)

func newModeCmd(use, short string, run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [input.xlsx]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return process(cmd, args[0], run)
		},
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [input.xlsx]",
		Short: "Process a workbook with a registered layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return process(cmd, args[0], func(path string, opts ...xlkinetics.Option) ([]string, error) {
				opts = append(opts, xlkinetics.WithLayoutName(layoutKey))
				return xlkinetics.Run(path, opts...)
			})
		},
	}
	cmd.Flags().StringVar(&layoutKey, "layout", "intensity/v1", "Layout key, see 'xlkinetics layouts'")
	return cmd
}

func process(cmd *cobra.Command, inputPath string, run runFunc) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", inputPath)
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	opts := []xlkinetics.Option{xlkinetics.WithLogger(logger)}
	if cfg.OutputDir != "" {
		opts = append(opts, xlkinetics.WithOutputDir(cfg.OutputDir))
	}
	if showProgress {
		opts = append(opts, xlkinetics.WithProgress(newProgressPrinter(cmd.ErrOrStderr())))
	}

	paths, err := run(inputPath, opts...)
	if showProgress {
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

func newLayoutsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layouts [key...]",
		Short: "List registered layouts, or describe the given ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, key := range xlkinetics.Layouts() {
					fmt.Fprintln(cmd.OutOrStdout(), key)
				}
				return nil
			}
			for _, key := range args {
				l, err := xlkinetics.LookupLayout(key)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), xlkinetics.DescribeLayout(l))
			}
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-layouts [layouts.yaml]",
		Short: "Check a layouts file and print every issue found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layouts, err := xlkinetics.LoadLayouts(args[0])
			if err != nil {
				return err
			}
			for _, l := range layouts {
				issues := xlkinetics.ValidateLayout(l)
				if len(issues) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", l.Key())
					continue
				}
				for _, issue := range issues {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", l.Key(), issue)
				}
			}
			return nil
		},
	}
}

func newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe [input.xlsx]",
		Short: "Show how a workbook lines up with a layout without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := xlkinetics.LookupLayout(layoutKey)
			if err != nil {
				return err
			}
			out, err := xlkinetics.DescribeWorkbook(args[0], l)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&layoutKey, "layout", "intensity/v1", "Layout key, see 'xlkinetics layouts'")
	return cmd
}

// registerLayouts adds the layouts of a YAML file to the registry.
func registerLayouts(path string) error {
	if path == "" {
		return nil
	}
	layouts, err := xlkinetics.LoadLayouts(path)
	if err != nil {
		return err
	}
	for _, l := range layouts {
		if err := xlkinetics.RegisterLayout(l); err != nil {
			return err
		}
	}
	return nil
}

// progressPrinter redraws a one-line step counter.
type progressPrinter struct {
	w io.Writer
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) OnProgress(ev xlkinetics.ProgressEvent) {
	step := min(ev.Step, ev.Total)
	fmt.Fprintf(p.w, "\r[%d/%d] %-8s %s", step, ev.Total, ev.Stage, ev.Artifact)
}
