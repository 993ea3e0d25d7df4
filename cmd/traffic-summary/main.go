// Command traffic-summary condenses a debug-server traffic log into the
// counts that matter when triaging a stuck or noisy session.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/sourcepawn-tools/remote-debug/internal/support/trafficsum"
)

func main() {
	flags := pflag.NewFlagSet("traffic-summary", pflag.ContinueOnError)
	jsonOutput := flags.Bool("json", false, "print summary as JSON")
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: traffic-summary [--json] <traffic.jsonl>")
		os.Exit(2)
	}
	path := flags.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		exitErr(fmt.Errorf("read traffic log: %w", err))
	}

	summary, err := trafficsum.Summarize(data)
	if err != nil {
		exitErr(fmt.Errorf("summarize %s: %w", path, err))
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			exitErr(err)
		}
		return
	}

	fmt.Printf("messages: %d (%d in, %d out)\n", summary.Messages, summary.Inbound, summary.Outbound)
	fmt.Printf("span: %s .. %s\n",
		summary.FirstAt.Format("15:04:05.000"), summary.LastAt.Format("15:04:05.000"))
	fmt.Printf("stops: %d", summary.Stops)
	if len(summary.StopReasons) > 0 {
		fmt.Printf(" (%s)", strings.Join(summary.StopReasons, ", "))
	}
	fmt.Println()

	types := make([]string, 0, len(summary.ByType))
	for name := range summary.ByType {
		types = append(types, name)
	}
	sort.Strings(types)
	for _, name := range types {
		fmt.Printf("  %-20s %d\n", name, summary.ByType[name])
	}
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "traffic-summary: %v\n", err)
	os.Exit(1)
}
