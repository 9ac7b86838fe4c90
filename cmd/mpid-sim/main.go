// Command mpid-sim runs the mailbox protocol on a simulated network.
//
// It builds a set of vaults from configuration, connects a sender and a
// recipient session, deposits messages, brings the recipient online so the
// managers fetch and relay them, queries the sender's outbox, and prints what
// was delivered together with per-vault account statistics.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/opd-ai/mpid/config"
	"github.com/opd-ai/mpid/logging"
)

// CLIConfig holds the parsed command line.
type CLIConfig struct {
	configFile   string
	vaults       int
	messages     int
	backend      string
	storeDir     string
	compression  string
	storeAddress string
	logLevel     string
	logFormat    string
	logFile      string
	deliveryLog  bool
	verbose      bool
	help         bool

	flags *pflag.FlagSet
}

// parseCLIFlags parses args (without the program name).
func parseCLIFlags(args []string) (*CLIConfig, error) {
	cli := &CLIConfig{}
	flagSet := pflag.NewFlagSet("mpid-sim", pflag.ContinueOnError)

	flagSet.StringVarP(&cli.configFile, "config", "c", "", "YAML configuration file")

	// Network
	flagSet.IntVar(&cli.vaults, "vaults", 8, "Number of simulated vaults")
	flagSet.IntVarP(&cli.messages, "messages", "n", 3, "Messages the sender deposits")
	flagSet.BoolVar(&cli.deliveryLog, "delivery-log", true, "Record every delivery attempt")

	// Store
	flagSet.StringVar(&cli.backend, "store-backend", string(config.BackendMemory), "Content store backend (memory, localfs, grpc)")
	flagSet.StringVar(&cli.storeDir, "store-dir", "", "Root directory of the localfs backend")
	flagSet.StringVar(&cli.compression, "compression", "zstd", "Compression of the localfs backend (none, lz4, zstd)")
	flagSet.StringVar(&cli.storeAddress, "store-address", "127.0.0.1:7465", "Address of the grpc store server")

	// Logging
	flagSet.StringVar(&cli.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flagSet.StringVar(&cli.logFormat, "log-format", "text", "Log format (text, json)")
	flagSet.StringVar(&cli.logFile, "log-file", "", "Log file path (default: stderr)")
	flagSet.BoolVarP(&cli.verbose, "verbose", "v", false, "Print the delivery log")

	flagSet.BoolVarP(&cli.help, "help", "h", false, "Show help message")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	cli.flags = flagSet
	return cli, nil
}

// printUsage prints the usage information.
func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(w, "mpid mailbox simulation")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Deposits messages from a sender, brings the recipient online, and reports")
	fmt.Fprintln(w, "what the mailbox managers delivered.")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Usage:\n  %s [options]\n\nOptions:\n", os.Args[0])
	fmt.Fprint(w, flagSet.FlagUsages())
}

// validateCLIConfig checks values that the configuration file cannot fix.
func validateCLIConfig(cli *CLIConfig) error {
	if cli.messages < 1 {
		return fmt.Errorf("messages must be at least 1")
	}
	if cli.vaults < 1 {
		return fmt.Errorf("vaults must be at least 1")
	}
	return nil
}

// buildConfig loads the configuration file, if any, and applies every flag
// the user set explicitly.
func buildConfig(cli *CLIConfig) (*config.Config, error) {
	cfg := config.Default()
	cfg.Log.Level = "warn"
	if cli.configFile != "" {
		loaded, err := config.LoadFile(cli.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := func(name string) bool {
		return cli.flags == nil || cli.flags.Changed(name)
	}
	if changed("vaults") {
		cfg.Network.Vaults = cli.vaults
	}
	if changed("delivery-log") {
		cfg.Network.DeliveryLog = cli.deliveryLog
	}
	if changed("store-backend") {
		cfg.Store.Backend = config.Backend(cli.backend)
	}
	if changed("store-dir") {
		cfg.Store.Dir = cli.storeDir
	}
	if changed("compression") {
		cfg.Store.Compression = cli.compression
	}
	if changed("store-address") {
		cfg.Store.Address = cli.storeAddress
	}
	if changed("log-level") {
		cfg.Log.Level = cli.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = cli.logFormat
	}
	if changed("log-file") {
		cfg.Log.File = cli.logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "mpid-sim: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cli, err := parseCLIFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if cli.help {
		printUsage(out, cli.flags)
		return nil
	}
	if err := validateCLIConfig(cli); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	cfg, err := buildConfig(cli)
	if err != nil {
		return err
	}

	closer, err := logging.Setup(cfg.LoggingOptions())
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := runSimulation(ctx, cfg, cli.messages)
	if err != nil {
		return err
	}
	report.Print(out, cli.verbose)
	if report.Delivered != report.Sent {
		return fmt.Errorf("delivered %d of %d messages", report.Delivered, report.Sent)
	}
	return nil
}
