package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/upalinski/blake3"
	"github.com/upalinski/blake3/internal/config"
	"github.com/upalinski/blake3/internal/logger"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger makes the command log to l instead of building a logger from
// its configuration.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewRootCmd returns the b3sum command.
func NewRootCmd(opts ...Option) *cobra.Command {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cmd := &cobra.Command{
		Use:   "b3sum [flags] [FILE]...",
		Short: "Print or check BLAKE3 checksums",
		Long: "Print or check BLAKE3 checksums. With no FILE, or when FILE is -, read standard input.\n\n" +
			"Every flag may also be set through the environment: --num-threads as B3SUM_NUM_THREADS, etc.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.NewViper(cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			log := o.logger
			if log == nil {
				if log, err = logger.NewLogger(cfg); err != nil {
					return err
				}
				defer log.Sync()
			}

			if len(args) == 0 {
				args = []string{stdinName}
			}
			r := &runner{
				cfg:    cfg,
				log:    log,
				stdin:  cmd.InOrStdin(),
				stdout: cmd.OutOrStdout(),
				stderr: cmd.ErrOrStderr(),
			}
			if err := r.readKey(args); err != nil {
				return err
			}
			if cfg.Check {
				return r.check(cmd.Context(), args)
			}
			return r.hash(cmd.Context(), args)
		},
	}

	flags := cmd.Flags()
	flags.IntP("length", "l", blake3.DefaultSize, "The number of output bytes, prior to hex encoding")
	flags.Int("num-threads", blake3.DefaultWorkers(), "The maximum number of threads to use")
	flags.Bool("keyed", false, "Use the keyed mode, reading the 32-byte key from stdin")
	flags.String("derive-key", "", "Use the key derivation mode, with the given context string")
	flags.Bool("no-names", false, "Omit filenames in the output")
	flags.Bool("raw", false, "Write raw output bytes to stdout, rather than hex; a single input only")
	flags.BoolP("check", "c", false, "Read BLAKE3 sums from the FILEs and check them")
	flags.Bool("progress", false, "Show a progress bar per file on stderr")
	flags.String("log-level", "warn", "Minimum level of log messages (debug, info, warn, error)")

	cmd.SetVersionTemplate(fmt.Sprintf("b3sum {{.Version}}\n%s\n", blake3.CPUFeatures()))
	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}
