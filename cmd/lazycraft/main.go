package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wangbochao789/LazyCraft-sub002/internal/config"
	"github.com/wangbochao789/LazyCraft-sub002/internal/logging"
	"github.com/wangbochao789/LazyCraft-sub002/pkg/canvas"
	"github.com/wangbochao789/LazyCraft-sub002/pkg/compiler"
	"github.com/wangbochao789/LazyCraft-sub002/pkg/node"
	"github.com/wangbochao789/LazyCraft-sub002/pkg/plan"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the persistent flags and the configuration they select.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	appID      string

	cfg config.Config
}

func rootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "lazycraft",
		Short: "Compile LazyCraft canvases into workflow plans",
		Long: `LazyCraft compiles the node-and-edge canvases drawn in the app editor
into the linear, nested plans executed by the workflow engine.

Canvases are JSON ({nodes, resources, edges}, optionally wrapped in {graph: …})
or Graphviz DOT files (.dot, .gv).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(o.configPath)
			if err != nil {
				return err
			}
			o.cfg = cfg
			level, format := cfg.Log.Level, cfg.Log.Format
			if cmd.Flags().Changed("log-level") {
				level = o.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				format = o.logFormat
			}
			return initLogger(level, format)
		},
	}
	root.PersistentFlags().StringVar(&o.configPath, "config", "", "path to a YAML compiler config")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&o.logFormat, "log-format", "text", "log format: text or json")
	root.PersistentFlags().StringVar(&o.appID, "app-id", "", "application instance id used to namespace plan ids (random if empty)")

	root.AddCommand(compileCmd(o))
	root.AddCommand(lintCmd(o))
	root.AddCommand(graphCmd(o))
	root.AddCommand(historyCmd(o))
	return root
}

// ─── compile ──────────────────────────────────────────────────────────────────

func compileCmd(o *options) *cobra.Command {
	var (
		out       string
		keepKinds []string
	)

	cmd := &cobra.Command{
		Use:   "compile <canvas>",
		Short: "Compile a canvas into an executable plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := compileCanvas(o, args[0], keepKinds...)
			if err != nil {
				return err
			}
			return writePlan(out, p, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the plan to this file instead of stdout")
	cmd.Flags().StringSliceVar(&keepKinds, "keep-kind", nil, "resource kinds kept even when unused (replaces the configured list)")
	return cmd
}

// ─── lint ─────────────────────────────────────────────────────────────────────

func lintCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lint <canvas>",
		Short: "Validate a canvas and check that it compiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := canvas.Load(args[0])
			if err != nil {
				return err
			}
			if lintErr := canvas.ValidateErr(g); lintErr != nil {
				return lintErr
			}
			if _, err := newConverter(o).Compile(g); err != nil {
				return fmt.Errorf("compile: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: canvas %q is valid (%d nodes, %d resources, %d edges)\n",
				filepath.Base(args[0]), len(g.Nodes), len(g.Resources), len(g.Edges))
			return nil
		},
	}
}

// ─── history ──────────────────────────────────────────────────────────────────

func historyCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history <canvas>",
		Short: "List the plan nodes that need conversation history injected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := compileCanvas(o, args[0])
			if err != nil {
				return err
			}
			for _, id := range compiler.FindHistory(p) {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// initLogger configures the default slog logger from flag values.
func initLogger(level, format string) error {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	return logging.Init(lvl, format)
}

// newConverter builds a converter from the loaded config and flags.
func newConverter(o *options, keepKinds ...string) *compiler.Converter {
	opts := o.cfg.CompilerOptions()
	if o.appID != "" {
		opts = append(opts, compiler.WithAppID(o.appID))
	}
	if len(keepKinds) > 0 {
		opts = append(opts, compiler.WithKeepResourceKinds(keepKinds...))
	}
	opts = append(opts, compiler.WithLogger(logging.New("compiler")))
	return compiler.New(node.DefaultRegistry(), opts...)
}

// compileCanvas loads and compiles the canvas at path.
func compileCanvas(o *options, path string, keepKinds ...string) (*plan.Plan, error) {
	g, err := canvas.Load(path)
	if err != nil {
		return nil, err
	}
	p, err := newConverter(o, keepKinds...).Compile(g)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	return p, nil
}

// writePlan writes p as indented JSON to path, or to stdout when path is empty.
func writePlan(path string, p *plan.Plan, stdout io.Writer) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("plan marshal: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("plan write: %w", err)
	}
	return nil
}
