// ABOUTME: CLI entrypoint for tickertape: run a session, open the dashboard, list history, or serve a replay.
// ABOUTME: Wires config, transport, controller, telemetry, history recorder, and signal handling together.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/2389-research/tickertape/config"
	"github.com/2389-research/tickertape/engine"
	"github.com/2389-research/tickertape/history"
	"github.com/2389-research/tickertape/present"
	"github.com/2389-research/tickertape/replay"
	"github.com/2389-research/tickertape/telemetry"
	"github.com/2389-research/tickertape/transport"
	"github.com/2389-research/tickertape/tui"
)

var version = "dev"

// Exit codes by final session status.
const (
	exitCompleted = 0
	exitErrored   = 1
	exitUsage     = 2
	exitCancelled = 130
)

// options holds everything parsed from flags and positional arguments.
type options struct {
	configPath   string
	endpoint     string
	tuiMode      bool
	replayFile   string
	serveReplay  string
	listHistory  bool
	historyLimit int
	showSession  string
	noHistory    bool
	metricsAddr  string
	jsonOut      bool
	verbose      bool
	showVersion  bool
	prompt       string
}

func main() {
	config.LoadDotEnvAuto()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(exitUsage)
	}

	if opts.showVersion {
		fmt.Printf("tickertape %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(opts, os.Stdout, os.Stderr))
}

// parseFlags parses args into options. Positional arguments are joined into
// the prompt.
func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("tickertape", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to config.yaml (default: $XDG_CONFIG_HOME/tickertape/config.yaml)")
	fs.StringVar(&opts.endpoint, "endpoint", "", "Orchestrator base URL (overrides config)")
	fs.BoolVar(&opts.tuiMode, "tui", false, "Run with interactive terminal dashboard")
	fs.StringVar(&opts.replayFile, "replay", "", "Read the event stream from an NDJSON file instead of the orchestrator")
	fs.StringVar(&opts.serveReplay, "serve-replay", "", "Serve an NDJSON file as a mock orchestrator")
	fs.BoolVar(&opts.listHistory, "history", false, "List recorded sessions")
	fs.IntVar(&opts.historyLimit, "limit", 20, "Number of sessions listed by -history")
	fs.StringVar(&opts.showSession, "show", "", "Print the archived trace of a recorded session")
	fs.BoolVar(&opts.noHistory, "no-history", false, "Do not record this session")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print the final snapshot as JSON")
	fs.BoolVar(&opts.verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		printHelp(stderr, version)
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.prompt = strings.TrimSpace(strings.Join(fs.Args(), " "))
	return opts, nil
}

// loadConfig layers flag overrides on top of the file and environment config.
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.endpoint != "" {
		cfg.Endpoint = opts.endpoint
	}
	if opts.metricsAddr != "" {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if opts.noHistory {
		cfg.History = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run dispatches to the appropriate mode and returns the exit code.
func run(opts options, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitErrored
	}

	switch {
	case opts.serveReplay != "":
		return runServeReplay(cfg, opts, stderr)
	case opts.listHistory:
		return runHistory(cfg, opts.historyLimit, stdout, stderr)
	case opts.showSession != "":
		return runShow(cfg, opts.showSession, opts.verbose, stdout, stderr)
	}

	if opts.prompt == "" && !opts.tuiMode {
		printHelp(stderr, version)
		return exitUsage
	}

	logf := discardLogf
	if opts.verbose && !opts.tuiMode {
		logger := log.New(stderr, "", log.LstdFlags)
		logf = logger.Printf
	}

	sess, err := newSession(cfg, opts, logf)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitErrored
	}
	defer sess.close()

	if opts.tuiMode {
		if err := tui.Run(context.Background(), sess.ctrl, opts.prompt); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitErrored
		}
		return exitCompleted
	}

	return runPlain(sess.ctrl, opts.prompt, opts.jsonOut, stdout, stderr)
}

func discardLogf(string, ...any) {}

// session bundles a controller with the resources attached to it.
type session struct {
	ctrl    *engine.Controller
	closers []func()
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newSession builds the transport and controller, then attaches telemetry,
// the history recorder, and the metrics endpoint. History and metrics
// failures are reported and skipped.
func newSession(cfg *config.Config, opts options, logf func(string, ...any)) (*session, error) {
	tr, err := buildTransport(cfg, opts.replayFile)
	if err != nil {
		return nil, err
	}

	collector := telemetry.NewCollector(true)
	ctrl := engine.NewController(tr,
		engine.WithLogf(logf),
		engine.WithObserver(collector),
		engine.WithMaxLineBytes(cfg.MaxLineBytes),
		engine.WithRequestExtra(cfg.Extra),
	)
	s := &session{ctrl: ctrl}

	if cfg.History {
		if detach, err := attachHistory(cfg, ctrl); err != nil {
			fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
		} else {
			s.closers = append(s.closers, detach)
		}
	}

	if cfg.MetricsAddr != "" {
		s.closers = append(s.closers, serveMetrics(cfg.MetricsAddr, collector, logf))
	}
	return s, nil
}

func buildTransport(cfg *config.Config, replayFile string) (transport.Transport, error) {
	if replayFile != "" {
		payload, err := os.ReadFile(replayFile)
		if err != nil {
			return nil, fmt.Errorf("reading replay file: %w", err)
		}
		return transport.NewStatic(payload), nil
	}
	h := transport.NewHTTP(cfg.Endpoint, cfg.StreamPath, cfg.ConnectTimeout)
	h.AuthToken = cfg.AuthToken
	return h, nil
}

// attachHistory opens the index and archive and subscribes a recorder.
// The returned func detaches the recorder and closes the index.
func attachHistory(cfg *config.Config, ctrl *engine.Controller) (func(), error) {
	index, err := openIndex(cfg)
	if err != nil {
		return nil, err
	}
	archive, err := history.OpenJsonlArchive(cfg.TraceDir())
	if err != nil {
		index.Close()
		return nil, err
	}
	unsubscribe := history.NewRecorder(index, archive).Attach(ctrl)
	return func() {
		unsubscribe()
		index.Close()
	}, nil
}

func openIndex(cfg *config.Config) (*history.SqliteIndex, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return history.OpenSqlite(cfg.HistoryDBPath())
}

// serveMetrics exposes the collector on addr until the returned func is called.
func serveMetrics(addr string, collector *telemetry.Collector, logf func(string, ...any)) func() {
	r := chi.NewRouter()
	r.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "warning: metrics server: %v\n", err)
		}
	}()
	logf("metrics listening addr=%s", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// runPlain runs one session, printing trace entries as they arrive. SIGINT
// aborts the session.
func runPlain(ctrl *engine.Controller, prompt string, jsonOut bool, stdout, stderr io.Writer) int {
	printer := newTracePrinter(stdout)
	unsubscribe := ctrl.Subscribe(printer.Observe)
	defer unsubscribe()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ctrl.Submit(context.Background(), prompt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ctrl.Wait(context.Background())
	}()

	select {
	case <-done:
	case <-sigChan:
		fmt.Fprintln(stderr, "\nInterrupted, aborting session...")
		ctrl.Abort()
		<-done
	}

	snap := ctrl.Snapshot()
	if jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitErrored
		}
	}
	if snap.Error != "" {
		fmt.Fprintf(stderr, "error: %s\n", snap.Error)
	}
	return exitCode(snap.Session.Status)
}

// exitCode maps a final session status to the process exit code.
func exitCode(status engine.Status) int {
	switch status {
	case engine.StatusCompleted:
		return exitCompleted
	case engine.StatusCancelled:
		return exitCancelled
	default:
		return exitErrored
	}
}

// tracePrinter writes each trace entry once, in sequence order.
type tracePrinter struct {
	w       io.Writer
	lastSeq int
	session string
	ended   bool
}

func newTracePrinter(w io.Writer) *tracePrinter {
	return &tracePrinter{w: w}
}

// Observe is a controller subscriber. Calls are serialized by the controller.
func (p *tracePrinter) Observe(snap engine.Snapshot) {
	if snap.Session.ID != p.session {
		p.session = snap.Session.ID
		p.lastSeq = 0
		p.ended = false
	}
	for _, e := range snap.Trace {
		if e.Seq <= p.lastSeq {
			continue
		}
		p.lastSeq = e.Seq
		fmt.Fprintln(p.w, formatTraceLine(e))
	}
	if snap.Session.Status.Terminal() && !p.ended {
		p.ended = true
		if snap.Answer != "" {
			fmt.Fprintf(p.w, "\n%s\n", snap.Answer)
		}
		fmt.Fprintf(p.w, "[session] %s %s in %s (%d steps)\n",
			snap.Session.ID, snap.Session.Status, snap.FinalLatency.Round(time.Millisecond), len(snap.Path))
	}
}

// formatTraceLine renders an entry as a single plain-text line.
func formatTraceLine(e engine.TraceEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %-5s %s", e.At.Format("15:04:05.000"), e.Level, e.Type)
	if e.Tool != "" {
		fmt.Fprintf(&b, " [%s]", e.Tool)
	}
	if e.Message != "" {
		b.WriteString(" ")
		b.WriteString(e.Message)
	}
	if payload := present.Compact(e.Payload, 200); payload != "" {
		b.WriteString(" ")
		b.WriteString(payload)
	}
	return b.String()
}

// runHistory prints the most recent recorded sessions.
func runHistory(cfg *config.Config, limit int, stdout, stderr io.Writer) int {
	index, err := openIndex(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitErrored
	}
	defer index.Close()

	records, err := index.List(limit)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitErrored
	}
	if len(records) == 0 {
		fmt.Fprintln(stdout, "No recorded sessions.")
		return exitCompleted
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTATUS\tSTARTED\tLATENCY\tSTEPS\tPROMPT")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dms\t%d\t%s\n",
			rec.SessionID, rec.Status, rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			rec.LatencyMS, len(rec.Path), truncate(rec.Prompt, 48))
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitErrored
	}
	return exitCompleted
}

// runShow prints a recorded session summary followed by its archived trace.
func runShow(cfg *config.Config, id string, verbose bool, stdout, stderr io.Writer) int {
	index, err := openIndex(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitErrored
	}
	defer index.Close()

	rec, err := index.Get(id)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitErrored
	}
	archive, err := history.OpenJsonlArchive(cfg.TraceDir())
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitErrored
	}
	entries, err := archive.Replay(id)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitErrored
	}

	fmt.Fprintf(stdout, "Session: %s\nStatus:  %s\nPrompt:  %s\nPath:    %s\n",
		rec.SessionID, rec.Status, rec.Prompt, strings.Join(rec.Path, " -> "))
	if rec.Error != "" {
		fmt.Fprintf(stdout, "Error:   %s\n", rec.Error)
	}
	fmt.Fprintln(stdout)
	for _, e := range entries {
		if !verbose {
			fmt.Fprintln(stdout, formatTraceLine(e))
			continue
		}
		// Verbose output keeps the summary line short and prints the full payload below it.
		payload := e.Payload
		e.Payload = nil
		fmt.Fprintln(stdout, formatTraceLine(e))
		if pretty := present.Pretty(payload); pretty != "" {
			fmt.Fprintln(stdout, indent(pretty, "    "))
		}
	}
	return exitCompleted
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}

// runServeReplay serves an NDJSON script as a mock orchestrator until
// interrupted.
func runServeReplay(cfg *config.Config, opts options, stderr io.Writer) int {
	script, err := replay.LoadScript(opts.serveReplay)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitErrored
	}

	collector := telemetry.NewCollector(true)
	srv, err := replay.NewServer(script, replay.Config{
		Addr:      cfg.Replay.Addr,
		Delay:     cfg.Replay.Delay,
		ChunkSize: cfg.Replay.ChunkSize,
		Metrics:   collector.Handler(),
		Observer:  collector,
		Logf:      log.New(stderr, "", log.LstdFlags).Printf,
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitErrored
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitErrored
	}
	return exitCompleted
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
