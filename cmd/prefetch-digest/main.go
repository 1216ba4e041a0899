// Command prefetch-digest computes BLAKE2b-256 digests of the records of a
// newline-delimited file. A prefetching reader decodes the file while a pool
// of workers hashes records; further passes rewind both stages and verify
// that the dataset checksum is stable.
//
//	prefetch-digest -config ./config.yml
//	INPUT_PATH=events.zst INPUT_COMPRESSION=zstd PREFETCH_WORKERS=8 prefetch-digest
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kbukum/prefetchkit/bootstrap"
	"github.com/kbukum/prefetchkit/config"
	"github.com/kbukum/prefetchkit/logger"
	"github.com/kbukum/prefetchkit/observability"
	"github.com/kbukum/prefetchkit/prefetch"
	"github.com/kbukum/prefetchkit/source"
	"github.com/kbukum/prefetchkit/version"
)

const serviceName = "prefetch-digest"

func main() {
	configFile := flag.String("config", "", "path to config.yml (searched for when empty)")
	envFile := flag.String("env", "", "path to a .env file (searched for when empty)")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(serviceName, version.Full())
		return
	}

	var cfg Config
	opts := []config.LoaderOption{}
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}
	if *envFile != "" {
		opts = append(opts, config.WithEnvFile(*envFile))
	}
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(context.Background(), &cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run digests the configured input and prints one line per pass to stdout.
func run(ctx context.Context, cfg *Config, stdout io.Writer, appOpts ...bootstrap.Option) error {
	app, err := bootstrap.NewApp(cfg, appOpts...)
	if err != nil {
		return err
	}
	app.Logger.Info("build", version.Get().Fields())

	shutdown, err := observability.Setup(ctx, cfg.Telemetry, serviceName, app.Version, cfg.Environment)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			app.Logger.Warn("telemetry flush failed", logger.ErrorFields("shutdown", err))
		}
	}()

	compression, err := source.ParseCompression(cfg.Input.Compression)
	if err != nil {
		return err
	}
	records, err := source.OpenRecords(cfg.Input.Path, compression)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cfg.Input.Output, stdout)
	if err != nil {
		records.Close()
		return err
	}
	app.OnStop(func(context.Context) error { return closeOut() })

	d, err := newDigester(filepath.Base(cfg.Input.Path), records, cfg.Prefetch, out,
		prefetch.WithMeter(observability.Meter(serviceName)))
	if err != nil {
		records.Close()
		return err
	}
	d.onPass = func(r PassResult, err error) {
		detail := fmt.Sprintf("records=%d bytes=%d", r.Records, r.Bytes)
		app.Summary.TrackStep(fmt.Sprintf("pass %d", r.Pass), detail, r.Elapsed, err)
	}
	for _, c := range d.components() {
		if err := app.RegisterComponent(c); err != nil {
			return err
		}
	}

	return app.RunTask(ctx, func(ctx context.Context) error {
		results, err := d.run(ctx, cfg.Input.Passes)
		for _, r := range results {
			fmt.Fprintln(stdout, r)
		}
		return err
	})
}

// openOutput resolves the per-record output target.
func openOutput(target string, stdout io.Writer) (io.Writer, func() error, error) {
	noop := func() error { return nil }
	switch target {
	case "":
		return nil, noop, nil
	case "-":
		return stdout, noop, nil
	}
	f, err := os.Create(target)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}
	return f, f.Close, nil
}
