// nejat browses Nejat events from the terminal: list and filter events,
// show event detail, subscribe to venues, vote for performers and file
// support tickets.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/prohmpiriya/nejat-client/internal/di"
	"github.com/prohmpiriya/nejat-client/internal/domain"
	"github.com/prohmpiriya/nejat-client/internal/mutation"
	"github.com/prohmpiriya/nejat-client/pkg/config"
	"github.com/prohmpiriya/nejat-client/pkg/logger"
	"github.com/prohmpiriya/nejat-client/pkg/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// session is what every command runs against
type session struct {
	c   *di.Container
	out io.Writer
}

type command struct {
	name    string
	args    string
	summary string
	run     func(ctx context.Context, s *session, args []string) error
}

var commands = map[string]command{}

func register(cmd command) {
	commands[cmd.name] = cmd
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var apiURL, envFile string
	var verbose bool

	flagSet := pflag.NewFlagSet("nejat", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&apiURL, "api", "", "Nejat API base URL (overrides API_BASE_URL)")
	flagSet.StringVar(&envFile, "env-file", "", "load configuration from this env file")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(stderr, flagSet)
		return errors.New("no command given")
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", rest[0])
	}

	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	if apiURL != "" {
		cfg.API.BaseURL = strings.TrimRight(apiURL, "/")
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	if err := logger.Init(&logger.Config{
		Level:       level,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Get()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	}
	defer func() {
		if err := telemetry.Shutdown(context.Background()); err != nil {
			log.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	container, err := di.NewContainer(&di.ContainerConfig{
		Config:   cfg,
		Logger:   log,
		Notifier: noticePrinter(stdout),
	})
	if err != nil {
		return err
	}
	defer container.Close()

	log.Debug("running command", zap.String("command", cmd.name), zap.String("api", cfg.API.BaseURL))
	return cmd.run(ctx, &session{c: container, out: stdout}, rest[1:])
}

func loadConfig(envFile string) (*config.Config, error) {
	if envFile != "" {
		return config.LoadWithPath(envFile)
	}
	return config.Load()
}

// noticePrinter writes success and info notices. Errors reach the user
// through the returned error instead.
func noticePrinter(w io.Writer) mutation.Notifier {
	return mutation.NotifierFunc(func(n mutation.Notice) {
		if n.Kind == mutation.NoticeError {
			return
		}
		fmt.Fprintf(w, "%s: %s\n", n.Title, n.Text)
	})
}

func printError(w io.Writer, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		fmt.Fprintln(w, "error: invalid input")
		for _, f := range verr.Fields {
			fmt.Fprintf(w, "  %s %s\n", f.Field, f.Message)
		}
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: nejat [flags] <command> [command flags]\n\nCommands:\n")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(w, "  %-14s %s\n", strings.TrimSpace(name+" "+cmd.args), cmd.summary)
	}

	fmt.Fprintf(w, "\nFlags:\n%s", flagSet.FlagUsages())
}
