// Command mpid-store serves content stores over gRPC so vaults configured with
// the grpc backend can keep their inbox and outbox remotely.
//
// Every namespace a client names ("<vault id>/inbox", "<vault id>/outbox") is
// backed by its own store: a directory under --dir with the localfs backend,
// or an in-memory store with the memory backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/opd-ai/mpid/chunkstore"
	"github.com/opd-ai/mpid/chunkstore/grpcstore"
	"github.com/opd-ai/mpid/chunkstore/localfs"
	"github.com/opd-ai/mpid/config"
	"github.com/opd-ai/mpid/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "mpid-store: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var configFile string
	cfg := config.Default()

	flagSet := pflag.NewFlagSet("mpid-store", pflag.ContinueOnError)
	flagSet.StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	listen := flagSet.String("listen", cfg.Server.Listen, "TCP address to serve on")
	backend := flagSet.String("backend", string(config.BackendLocalFS), "Backing store (memory, localfs)")
	dir := flagSet.String("dir", "", "Root directory of the localfs backend")
	compression := flagSet.String("compression", cfg.Store.Compression, "Compression (none, lz4, zstd)")
	maxMsg := flagSet.Int("max-message-bytes", cfg.Store.MaxMessageBytes, "Maximum gRPC message size")
	logLevel := flagSet.String("log-level", cfg.Log.Level, "Log level (debug, info, warn, error)")
	logFormat := flagSet.String("log-format", cfg.Log.Format, "Log format (text, json)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if configFile != "" {
		loaded, err := config.LoadFile(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if flagSet.Changed("listen") || configFile == "" {
		cfg.Server.Listen = *listen
	}
	if flagSet.Changed("backend") || configFile == "" {
		cfg.Store.Backend = config.Backend(*backend)
	}
	if flagSet.Changed("dir") || configFile == "" {
		cfg.Store.Dir = *dir
	}
	if flagSet.Changed("compression") {
		cfg.Store.Compression = *compression
	}
	if flagSet.Changed("max-message-bytes") {
		cfg.Store.MaxMessageBytes = *maxMsg
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if flagSet.Changed("log-format") {
		cfg.Log.Format = *logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	closer, err := logging.Setup(cfg.LoggingOptions())
	if err != nil {
		return err
	}
	defer closer.Close()

	open, err := openFunc(cfg.Store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Listen, err)
	}
	return serve(ctx, lis, open, cfg.Store.MaxMessageBytes)
}

// openFunc returns the per-namespace store constructor for the backend.
func openFunc(cfg config.StoreConfig) (grpcstore.OpenFunc, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return func(string) (chunkstore.Store, error) {
			return chunkstore.NewMemoryStore(), nil
		}, nil
	case config.BackendLocalFS:
		compression, err := localfs.ParseCompression(cfg.Compression)
		if err != nil {
			return nil, err
		}
		root := cfg.Dir
		return func(namespace string) (chunkstore.Store, error) {
			return localfs.New(filepath.Join(root, namespace), compression)
		}, nil
	default:
		return nil, fmt.Errorf("%w: backend %q cannot be served", config.ErrInvalid, cfg.Backend)
	}
}

// serve runs the gRPC server on lis until ctx is done.
func serve(ctx context.Context, lis net.Listener, open grpcstore.OpenFunc, maxMsgBytes int) error {
	var opts []grpc.ServerOption
	if maxMsgBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(maxMsgBytes), grpc.MaxSendMsgSize(maxMsgBytes))
	}
	srv := grpc.NewServer(opts...)
	grpcstore.RegisterChunkStoreServer(srv, grpcstore.NewServer(open))

	logrus.WithFields(logrus.Fields{
		"function": "serve",
		"address":  lis.Addr().String(),
	}).Info("Serving chunk stores")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logrus.WithFields(logrus.Fields{
			"function": "serve",
		}).Info("Shutting down")
		srv.GracefulStop()
		return nil
	})
	return g.Wait()
}
