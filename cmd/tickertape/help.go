// ABOUTME: Help display for the tickertape CLI with grouped flags, examples, and environment status.
// ABOUTME: Provides printHelp for usage output and envStatus for reporting which TICKERTAPE_* variables are set.
package main

import (
	"fmt"
	"io"
	"os"
)

const tickertapeASCII = `
   ____________________________________________
  / o  o  o  o  o  o  o  o  o  o  o  o  o  o  o \
 |  status > topology > tool_call > complete     |
  \ o  o  o  o  o  o  o  o  o  o  o  o  o  o  o /
   ------------------------------------------~~
`

// printHelp writes usage patterns, grouped flags, examples, and the
// environment status to w.
func printHelp(w io.Writer, ver string) {
	fmt.Fprint(w, tickertapeASCII)
	fmt.Fprintf(w, "tickertape %s: live client for streaming agent orchestrators\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tickertape [flags] <prompt>            Run one session and stream its trace")
	fmt.Fprintln(w, "  tickertape -tui [prompt]               Interactive dashboard")
	fmt.Fprintln(w, "  tickertape -replay run.ndjson <prompt> Replay a recorded stream")
	fmt.Fprintln(w, "  tickertape -serve-replay run.ndjson    Serve a recorded stream as a mock orchestrator")
	fmt.Fprintln(w, "  tickertape -history [-limit 20]        List recorded sessions")
	fmt.Fprintln(w, "  tickertape -show <session-id>          Print a recorded session's trace")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Session Flags:")
	fmt.Fprintln(w, "  -endpoint <url>       Orchestrator base URL (default: http://127.0.0.1:8000)")
	fmt.Fprintln(w, "  -config <file>        Config file (default: $XDG_CONFIG_HOME/tickertape/config.yaml)")
	fmt.Fprintln(w, "  -json                 Print the final snapshot as JSON")
	fmt.Fprintln(w, "  -no-history           Do not record this session")
	fmt.Fprintln(w, "  -metrics-addr <addr>  Expose Prometheus metrics, e.g. 127.0.0.1:9464")
	fmt.Fprintln(w, "  -verbose              Verbose output; with -show, print full payloads")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Other:")
	fmt.Fprintln(w, "  -version              Print version and exit")
	fmt.Fprintln(w, "  -help                 Show this help")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, `  tickertape "compare espresso prices in Lisbon"`)
	fmt.Fprintln(w, `  tickertape -json -endpoint http://orchestrator:8000 "summarize the release notes"`)
	fmt.Fprintln(w, "  tickertape -serve-replay testdata/research.ndjson")
	fmt.Fprintln(w, "  tickertape -tui")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Exit codes: 0 completed, 1 errored, 130 cancelled")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment:")
	for _, key := range []string{"TICKERTAPE_ENDPOINT", "TICKERTAPE_AUTH_TOKEN", "TICKERTAPE_HOME"} {
		fmt.Fprintf(w, "  %-22s%s\n", key, envStatus(key))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Docs: https://github.com/2389-research/tickertape")
}

// envStatus returns "[set]" if the named environment variable is non-empty,
// or "[not set]" otherwise.
func envStatus(key string) string {
	if os.Getenv(key) != "" {
		return "[set]"
	}
	return "[not set]"
}
