package warm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-lynx/renderpool"
	"github.com/go-lynx/renderpool/app/log"
	"github.com/go-lynx/renderpool/app/observability/metrics"
	"github.com/go-lynx/renderpool/cmd/renderpool/internal/base"
	"github.com/go-lynx/renderpool/engine"
	"github.com/spf13/cobra"
)

// CmdWarm starts every engine and reports readiness, optionally serving metrics afterwards.
var CmdWarm = &cobra.Command{
	Use:   "warm",
	Short: "Start all engines and report their readiness",
	Example: `  # Report how long each kind takes to become ready
  renderpool warm

  # Keep the engines warm and expose Prometheus metrics
  renderpool warm --metrics-addr :9464`,
	Args: cobra.NoArgs,
	RunE: run,
}

var (
	metricsAddr string
	timeout     time.Duration
)

func init() {
	CmdWarm.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address until interrupted")
	CmdWarm.Flags().DurationVar(&timeout, "timeout", time.Minute, "how long to wait for each kind")
}

type report struct {
	kind    engine.Kind
	elapsed time.Duration
	err     error
}

func run(cmd *cobra.Command, _ []string) error {
	bc, done, err := base.Setup()
	if err != nil {
		return err
	}
	defer done()

	o, err := base.Orchestrator(bc)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	o.Start(ctx)

	reports := make(chan report, len(engine.Kinds()))
	for _, kind := range engine.Kinds() {
		go func() {
			wctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			_, err := o.Engine(wctx, kind)
			reports <- report{kind: kind, elapsed: time.Since(start), err: err}
		}()
	}

	out := cmd.OutOrStdout()
	failed := 0
	for range engine.Kinds() {
		r := <-reports
		if r.err != nil {
			failed++
			color.New(color.FgRed).Fprintf(out, "  %-8s %-8s %v\n", r.kind, renderpool.StateFailed, r.err)
			continue
		}
		color.New(color.FgGreen).Fprintf(out, "  %-8s %-8s %s\n", r.kind, renderpool.StateReady, r.elapsed.Round(time.Millisecond))
	}
	color.New(color.FgCyan).Fprintf(out, "generic pool: %d/%d idle\n", o.Idle(), bc.Renderpool.Pool.Capacity)

	if metricsAddr == "" {
		if failed > 0 {
			return fmt.Errorf("%d engine kind(s) unavailable", failed)
		}
		return nil
	}
	return serve(ctx, metricsAddr)
}

func serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Infow("msg", "serving metrics", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
