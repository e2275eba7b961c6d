package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shamspias/snapfit"
	"github.com/shamspias/snapfit/internal/config"
)

// app carries the state shared by subcommands once configuration is loaded.
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
	target snapfit.Target
	enc    *snapfit.JPEGEncoder
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "snapfit",
		Short: "Fit photos into an upload byte budget",
		Long: `snapfit recompresses photos as JPEG so they stay under a byte budget
before being sent to an image analysis service.

It steps JPEG quality down from 0.86 and then shrinks the image toward a
700 pixel floor, for at most eight attempts, and keeps the first attempt
that fits. JPEGs that already fit are left untouched.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is .snapfit.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log every attempt")
	pf.String("max-bytes", "", "byte budget, e.g. 900KB (default 921600)")
	pf.Int("max-dimension", 0, "longer-edge cap in pixels (default 1400)")
	pf.String("resampler", "", "scaling: nearest|approx-bilinear|bilinear|catmull-rom")
	pf.String("background", "", "fill for transparent pixels: white|black|#rrggbb")
	pf.String("log-format", "", "log format: text|json")

	_ = a.v.BindPFlag("target.max_bytes", pf.Lookup("max-bytes"))
	_ = a.v.BindPFlag("target.max_dimension", pf.Lookup("max-dimension"))
	_ = a.v.BindPFlag("encoder.resampler", pf.Lookup("resampler"))
	_ = a.v.BindPFlag("encoder.background", pf.Lookup("background"))
	_ = a.v.BindPFlag("logging.format", pf.Lookup("log-format"))

	root.AddCommand(newCompressCmd(a), newUploadCmd(a), newVersionCmd())
	return root
}

// init loads configuration and derives the logger, target and encoder.
func (a *app) init(cmd *cobra.Command) error {
	if a.verbose {
		a.v.Set("logging.level", "debug")
	}
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return &configError{err}
	}
	a.cfg = cfg
	a.logger = cfg.Logger(cmd.ErrOrStderr())

	// Validated by config.Load.
	a.target, _ = cfg.CompressionTarget()
	a.enc, _ = cfg.JPEGEncoder()

	a.logger.Debug("configuration loaded",
		"max_bytes", a.target.MaxBytes,
		"max_dimension", a.target.MaxDimension,
		"resampler", a.enc.Resampler.String(),
	)
	return nil
}

func (a *app) compressor(opts ...snapfit.Option) *snapfit.Compressor {
	return snapfit.New(append([]snapfit.Option{
		snapfit.WithEncoder(a.enc),
		snapfit.WithLogger(a.logger),
	}, opts...)...)
}
