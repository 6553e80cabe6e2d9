// ATC Presence dashboard
// Terminal dashboard for a running atc-presence service with the HTTP API
// enabled.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	url := pflag.StringP("url", "u", "http://127.0.0.1:8765", "Presence API base URL")
	interval := pflag.DurationP("interval", "n", 2*time.Second, "Poll interval")
	pflag.Parse()

	if *interval <= 0 {
		fmt.Fprintln(os.Stderr, "Error: interval must be positive")
		os.Exit(1)
	}

	dash := NewDashboard(NewClient(*url), *interval)
	if err := dash.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
