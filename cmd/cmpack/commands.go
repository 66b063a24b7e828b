package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sbl8/ctxmix/codec"
	"github.com/sbl8/ctxmix/config"
)

const suffix = ".cmx"

type app struct {
	configPath  string
	logLevel    string
	variant     string
	metricsFile string
	output      string

	cfg    config.Config
	logger *slog.Logger
	reg    *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:               "cmpack",
		Short:             "Context-mixing compressor",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "", "override log.level: debug, info, warn or error")
	pf.StringVar(&a.variant, "variant", "", "override the kernel variant: auto, scalar, sse2, avx2 or neon")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file")

	compressCmd := &cobra.Command{
		Use:   "compress [file]",
		Short: "Compress a file, or stdin when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runCompress,
	}
	compressCmd.Flags().StringVarP(&a.output, "output", "o", "",
		"output path, - for stdout (default <file>"+suffix+", or stdout for stdin)")

	decompressCmd := &cobra.Command{
		Use:   "decompress [file]",
		Short: "Decompress a container, or stdin when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runDecompress,
	}
	decompressCmd.Flags().StringVarP(&a.output, "output", "o", "",
		"output path, - for stdout (default <file> without "+suffix+", or stdout)")

	infoCmd := &cobra.Command{
		Use:   "info [file]",
		Short: "Print the header of a container",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runInfo,
	}

	root.AddCommand(compressCmd, decompressCmd, infoCmd)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.variant != "" {
		cfg.Variant = a.variant
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	a.reg = prometheus.NewRegistry()
	a.logger.Debug("configuration loaded", "path", a.configPath, "variant", cfg.KernelVariant())
	return nil
}

func (a *app) engine() *codec.Engine {
	return codec.NewEngine(a.cfg,
		codec.WithLogger(a.logger),
		codec.WithMetrics(codec.NewMetrics(a.reg)))
}

func (a *app) runCompress(cmd *cobra.Command, args []string) error {
	in := inputName(args)
	out := a.output
	if out == "" && in != "" {
		out = in + suffix
	}
	return a.transform(cmd, in, out, a.engine().Compress)
}

func (a *app) runDecompress(cmd *cobra.Command, args []string) error {
	in := inputName(args)
	out := a.output
	if out == "" && strings.HasSuffix(in, suffix) {
		out = strings.TrimSuffix(in, suffix)
	}
	return a.transform(cmd, in, out, a.engine().Decompress)
}

type runFunc func(ctx context.Context, r io.Reader, w io.Writer) (codec.Stats, error)

// transform runs fn from in to out. Empty names and "-" mean the command's
// stdin and stdout. A partially written output file is removed on failure.
func (a *app) transform(cmd *cobra.Command, in, out string, fn runFunc) (err error) {
	defer func() {
		if merr := a.writeMetrics(); merr != nil {
			err = errors.Join(err, merr)
		}
	}()

	if in != "" && out != "" && out != "-" && filepath.Clean(in) == filepath.Clean(out) {
		return fmt.Errorf("refusing to overwrite input %s", in)
	}

	var r io.Reader = cmd.InOrStdin()
	if in != "" {
		f, err := os.Open(in)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	if out == "" || out == "-" {
		_, err = fn(cmd.Context(), r, cmd.OutOrStdout())
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	_, err = fn(cmd.Context(), r, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		return err
	}
	a.logger.Debug("wrote output", "path", out)
	return nil
}

func (a *app) writeMetrics() error {
	if a.metricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.metricsFile, a.reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func (a *app) runInfo(cmd *cobra.Command, args []string) error {
	in := inputName(args)
	var r io.Reader = cmd.InOrStdin()
	var size int64 = -1
	if in != "" {
		f, err := os.Open(in)
		if err != nil {
			return err
		}
		defer f.Close()
		if st, err := f.Stat(); err == nil {
			size = st.Size()
		}
		r = f
	}

	h, err := codec.Inspect(r)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	p := h.Params
	fmt.Fprintf(w, "version:        %d\n", h.Version)
	fmt.Fprintf(w, "length:         %d\n", h.Length)
	fmt.Fprintf(w, "crc32:          %08x\n", h.Checksum)
	fmt.Fprintf(w, "orders:         %v\n", p.Orders)
	fmt.Fprintf(w, "table bits:     %d\n", p.TableBits)
	fmt.Fprintf(w, "counter rate:   %d\n", p.CounterRate)
	fmt.Fprintf(w, "scale factor:   %d / %d\n", p.ScaleFactor, p.CombinerScaleFactor)
	fmt.Fprintf(w, "learning rate:  %d (floors %d / %d)\n", p.LearningRate, p.LeafFloor, p.InternalFloor)
	if size >= 0 {
		fmt.Fprintf(w, "packed size:    %d\n", size)
		if h.Length > 0 {
			fmt.Fprintf(w, "bits per byte:  %.3f\n", 8*float64(size)/float64(h.Length))
		}
	}
	return nil
}

func inputName(args []string) string {
	if len(args) == 0 || args[0] == "-" {
		return ""
	}
	return args[0]
}
