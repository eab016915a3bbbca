// Command nwbview opens NWB files through the reader host and reports the
// layers each file produces.
package main

import (
	"context"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	logging "github.com/ipfs/go-log/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nwbview/internal/core"
	"nwbview/pkg/pluginapi"
	"nwbview/plugins/nwb"
)

var (
	log      = logging.Logger("nwbview/cmd")
	exitFunc = os.Exit
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

type options struct {
	cfg         nwb.Config
	history     int
	metricsAddr string
	logLevel    string
	trace       bool
}

func parseFlags(args []string, stderr io.Writer) (options, []string, error) {
	cfg, err := nwb.ConfigFromEnv()
	if err != nil {
		return options{}, nil, err
	}
	opts := options{cfg: cfg}
	fs := flag.NewFlagSet("nwbview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: nwbview [flags] <path> [path...]")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.cfg.SeriesName, "series", cfg.SeriesName, "acquisition image series to read")
	fs.DurationVar(&opts.cfg.FetchTimeout, "timeout", cfg.FetchTimeout, "per-frame HTTP timeout (negative disables)")
	fs.IntVar(&opts.cfg.Concurrency, "concurrency", cfg.Concurrency, "frames fetched in parallel")
	fs.IntVar(&opts.cfg.Retries, "retries", cfg.Retries, "extra attempts per frame")
	fs.IntVar(&opts.history, "history", 0, "print the last N opened files and exit")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /debug/vars on this address while running")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error); defaults to GOLOG_LOG_LEVEL")
	fs.BoolVar(&opts.trace, "trace", false, "write JSON trace spans to stderr")
	if err := fs.Parse(args); err != nil {
		return options{}, nil, err
	}
	return opts, fs.Args(), nil
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, paths, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}
	if opts.logLevel != "" {
		lvl, err := logging.LevelFromString(opts.logLevel)
		if err != nil {
			fmt.Fprintf(stderr, "invalid -log-level: %v\n", err)
			return 2
		}
		logging.SetAllLoggers(lvl)
	}
	if opts.history <= 0 && len(paths) == 0 {
		fmt.Fprintln(stderr, "usage: nwbview [flags] <path> [path...]")
		return 2
	}

	store, err := core.OpenHistoryStore()
	if err != nil {
		fmt.Fprintf(stderr, "open history: %v\n", err)
		return 1
	}
	svcOpts := []core.ServiceOption{core.WithHistory(store)}
	metrics := core.MultiMetricsRecorder{core.NewExpvarMetricsRecorder("")}
	if opts.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		metrics = append(metrics, rec)
		shutdown, err := serveMetrics(opts.metricsAddr, reg)
		if err != nil {
			fmt.Fprintf(stderr, "metrics listener: %v\n", err)
			return 1
		}
		defer shutdown()
	}
	svcOpts = append(svcOpts, core.WithMetricsRecorder(metrics))
	if opts.trace {
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(stderr)))
	}
	svc := core.NewService(svcOpts...)
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warnw("closing history", "err", err)
		}
	}()

	if opts.history > 0 {
		return printHistory(ctx, svc, opts.history, stdout, stderr)
	}

	opts.cfg.Diagnostics = stdout
	plugin, err := nwb.New(opts.cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if _, err := svc.InstallPlugin(plugin); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	layers, err := svc.Read(ctx, pluginapi.Paths(paths))
	if err != nil {
		fmt.Fprintf(stderr, "read %s: %v\n", paths[0], err)
		return 1
	}
	for i, layer := range layers {
		size := uint64(0)
		shape := "()"
		if layer.Data != nil {
			size = uint64(len(layer.Data.Bytes()))
			shape = layer.Data.String()
		}
		fmt.Fprintf(stdout, "layer %d: %s %s %s\n", i, layer.Kind, shape, humanize.Bytes(size))
	}
	return 0
}

func printHistory(ctx context.Context, svc *core.Service, n int, stdout, stderr io.Writer) int {
	entries, err := svc.History(ctx, n)
	if err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return 1
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OPENED\tSHAPE\tSIZE\tREADER\tPATH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t(%d, %d, %d)\t%s\t%s\t%s\n",
			humanize.Time(e.OpenedAt), e.Shape[0], e.Shape[1], e.Shape[2],
			humanize.Bytes(uint64(e.Bytes)), e.Reader, e.Path)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/debug/vars", expvar.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warnw("metrics server stopped", "err", err)
		}
	}()
	log.Infow("serving metrics", "addr", ln.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
