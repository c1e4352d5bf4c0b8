package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vk/bogflow/internal/app"
	"github.com/vk/bogflow/internal/hcl"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// options are the flags shared by every command.
type options struct {
	configFile string
	manifests  []string
	plugins    []string
	logLevel   string
	logFormat  string

	chain           string
	workflow        string
	args            []string
	workers         int
	healthcheckPort int
	logsDir         string
	ledger          string
	strict          bool
}

// NewRootCommand builds the bogflow command tree. Output of the commands and
// of the application's logger goes to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "bogflow",
		Short: "Run chains of services that share a goody bag of named values.",
		Long: `bogflow runs chains of services. Every service reads its inputs from the
bag of values the services before it produced, and adds its outputs to it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError(err) })

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "YAML config file providing defaults for every flag.")
	pf.StringSliceVar(&opts.manifests, "manifests", nil, "Service manifest and workflow files or directories.")
	pf.StringSliceVar(&opts.plugins, "plugins", nil, "Manifests loaded last; services defined again here override earlier ones.")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")

	root.AddCommand(newRunCommand(out, opts), newServicesCommand(out, opts))
	return root
}

func newRunCommand(out io.Writer, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [CHAIN]",
		Short: "Run a chain or a workflow.",
		Long: `Run a chain given as a delimited list of service names ("a,b|c"), or a
workflow loaded from the manifests. Arguments given with --arg are injected in
front of the chain; values starting with '@' refer to other bag entries.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if cmd.Flags().Changed("chain") {
					return usageError(errors.New("the chain is given both as an argument and with --chain"))
				}
				if err := cmd.Flags().Set("chain", args[0]); err != nil {
					return usageError(err)
				}
			}
			cfg, err := buildConfig(cmd, opts)
			if err != nil {
				return err
			}
			cfg.Argv = append([]string{"bogflow"}, cmdArgv(cmd)...)
			return runApp(cmd.Context(), out, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.chain, "chain", "", "Delimited list of services to run.")
	f.StringVarP(&opts.workflow, "workflow", "w", "", "Name of a workflow to run.")
	f.StringArrayVar(&opts.args, "arg", nil, "Chain argument as key=value; repeatable.")
	f.IntVar(&opts.workers, "workers", 0, "Default cap on concurrently running parallel work. 0 is unlimited.")
	f.IntVar(&opts.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health and metrics server. 0 is disabled.")
	f.StringVar(&opts.logsDir, "logs-dir", "", "Directory receiving one folder with run.json per run.")
	f.StringVar(&opts.ledger, "ledger", "", "SQLite file recording every finished handle.")
	f.BoolVar(&opts.strict, "strict", false, "Fail services whose inputs or outputs cannot be serialised.")
	return cmd
}

func newServicesCommand(out io.Writer, opts *options) *cobra.Command {
	var arguments bool
	cmd := &cobra.Command{
		Use:   "services",
		Short: "List the registered services.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig(cmd, opts)
			if err != nil {
				return err
			}
			a, err := app.NewApp(cmd.ErrOrStderr(), cfg, hcl.NewLoader())
			if err != nil {
				return err
			}
			defer a.Close()
			if arguments {
				return printArguments(out, a)
			}
			return printServices(out, a)
		},
	}
	cmd.Flags().BoolVar(&arguments, "arguments", false, "List argument names and the services that take them instead.")
	return cmd
}

// buildConfig layers the flags the user set over the config file and
// validates the result.
func buildConfig(cmd *cobra.Command, opts *options) (*app.Config, error) {
	var cfg app.Config
	if opts.configFile != "" {
		fileCfg, err := app.LoadConfigFile(opts.configFile)
		if err != nil {
			return nil, usageError(err)
		}
		cfg = fileCfg
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	// Without a config file every flag applies, defaults included.
	applyDefault := func(name string, set func()) {
		if changed(name) || opts.configFile == "" {
			set()
		}
	}

	applyDefault("manifests", func() { cfg.ManifestPaths = opts.manifests })
	applyDefault("plugins", func() { cfg.PluginPaths = opts.plugins })
	applyDefault("log-level", func() { cfg.LogLevel = strings.ToLower(opts.logLevel) })
	applyDefault("log-format", func() { cfg.LogFormat = strings.ToLower(opts.logFormat) })
	if cmd.Flags().Lookup("chain") != nil {
		if changed("chain") || changed("workflow") {
			cfg.Chain, cfg.Workflow = opts.chain, opts.workflow
		}
		applyDefault("workers", func() { cfg.WorkerCount = opts.workers })
		applyDefault("healthcheck-port", func() { cfg.HealthcheckPort = opts.healthcheckPort })
		applyDefault("logs-dir", func() { cfg.LogsDir = opts.logsDir })
		applyDefault("ledger", func() { cfg.LedgerPath = opts.ledger })
		applyDefault("strict", func() { cfg.Strict = opts.strict })

		args, err := parseArgs(opts.args)
		if err != nil {
			return nil, usageError(err)
		}
		if len(args) > 0 && cfg.Args == nil {
			cfg.Args = map[string]string{}
		}
		for k, v := range args {
			cfg.Args[k] = v
		}
	}

	c, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	return c, nil
}

func parseArgs(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --arg '%s', expected key=value", kv)
		}
		out[k] = v
	}
	return out, nil
}

func cmdArgv(cmd *cobra.Command) []string {
	argv := []string{cmd.Name()}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			for _, v := range sv.GetSlice() {
				argv = append(argv, fmt.Sprintf("--%s=%s", f.Name, v))
			}
			return
		}
		argv = append(argv, fmt.Sprintf("--%s=%s", f.Name, f.Value.String()))
	})
	return argv
}

func runApp(ctx context.Context, out io.Writer, cfg *app.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.NewApp(out, cfg, hcl.NewLoader())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Run(ctx)
	if errors.Is(err, app.ErrNothingToRun) {
		return usageError(fmt.Errorf("%w: pass a chain or --workflow", err))
	}
	if res != nil && res.ReportPath != "" {
		fmt.Fprintf(out, "Run %s report: %s\n", res.ID, res.ReportPath)
	}
	return err
}

func printServices(out io.Writer, a *app.App) error {
	for _, name := range a.Registry().Services() {
		def, err := a.Registry().Resolve(name)
		if err != nil {
			return err
		}
		params := make([]string, 0, len(def.Params))
		for _, p := range def.Params {
			if p.HasDefault {
				params = append(params, fmt.Sprintf("%s=%v", p.Name, p.Default))
			} else {
				params = append(params, p.Name)
			}
		}
		fmt.Fprintf(out, "%s(%s)", name, strings.Join(params, ", "))
		if len(def.Returns) > 0 {
			fmt.Fprintf(out, " -> %s", strings.Join(def.Returns, ", "))
		}
		if def.Depth() > 0 {
			fmt.Fprintf(out, " [overrides %d]", def.Depth())
		}
		fmt.Fprintf(out, "\n    %s (%s)\n", def.Description, def.Source)
	}
	return nil
}

// printArguments lists every parameter name with the active services that
// declare it.
func printArguments(out io.Writer, a *app.App) error {
	usedBy := map[string][]string{}
	for _, name := range a.Registry().Services() {
		def, err := a.Registry().Resolve(name)
		if err != nil {
			return err
		}
		for _, p := range def.Params {
			usedBy[p.Name] = append(usedBy[p.Name], name)
		}
	}
	for _, arg := range slices.Sorted(maps.Keys(usedBy)) {
		fmt.Fprintf(out, "%s: %s\n", arg, strings.Join(usedBy[arg], ", "))
	}
	return nil
}
