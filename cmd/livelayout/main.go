package main

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information (can be overridden at build time with -ldflags)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "livelayout",
		Short:        "Decorate HTML pages with layout pages",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringP("dir", "d", "", "template directory (default from config, else .)")
	root.PersistentFlags().StringP("config", "c", "", "configuration file (default <dir>/livelayout.yaml when present)")
	root.PersistentFlags().Bool("debug", false, "log decoration steps to stderr")

	root.AddCommand(newRenderCmd(), newCheckCmd(), newServeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "livelayout version %s\n", version)

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	var vcsRevision, vcsModified string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			vcsRevision = setting.Value
		case "vcs.modified":
			vcsModified = setting.Value
		}
	}

	if commit != "unknown" {
		fmt.Fprintf(w, "commit: %s\n", commit)
	} else if vcsRevision != "" {
		if len(vcsRevision) > 12 {
			vcsRevision = vcsRevision[:12]
		}
		fmt.Fprintf(w, "commit: %s\n", vcsRevision)
	}
	if date != "unknown" {
		fmt.Fprintf(w, "built: %s\n", date)
	}
	if vcsModified == "true" {
		fmt.Fprintf(w, "modified: true (uncommitted changes)\n")
	}
	fmt.Fprintf(w, "go: %s\n", info.GoVersion)
}
