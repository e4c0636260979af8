// Package main implements the sipagent CLI harness: a thin cobra/viper
// shell around the core library, answering inbound calls with a
// media.UDPSession bridge. Grounded on firestige-Otus/cmd's
// rootCmd/PersistentFlags/AddCommand layout; explicitly out of core
// library scope per spec.md §1's CLI non-goal — nothing under internal/
// or the top-level packages imports this tree.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "sipagent",
	Short: "sipagent runs a SIP user agent for voice-AI call backends",
	Long: `sipagent is a minimal SIP/SDP user agent built on github.com/sipagent/core.
It answers inbound INVITEs, negotiates audio, and opens an RTP session for
each answered call. Received audio and DTMF are not forwarded anywhere.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/sipagent/config.yml",
		"config file path")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dialCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
