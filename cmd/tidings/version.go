package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is the release version, overridable with -ldflags at build time.
// Commit and build time come from the module's embedded build info.
var Version = "0.1.0"

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if versionShort {
			fmt.Println(Version)
			return
		}
		commit, modified, builtAt := buildMetadata()
		if modified {
			commit += "-dirty"
		}
		fmt.Printf("tidings %s (%s, built %s, %s, %s/%s)\n",
			Version, commit, builtAt, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print the bare version number")
	rootCmd.AddCommand(versionCmd)
}

// buildMetadata reads the VCS stamp the Go toolchain embeds into the binary.
func buildMetadata() (commit string, modified bool, builtAt string) {
	commit, builtAt = "unknown", "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if len(s.Value) >= 12 {
				commit = s.Value[:12]
			} else if s.Value != "" {
				commit = s.Value
			}
		case "vcs.modified":
			modified = s.Value == "true"
		case "vcs.time":
			builtAt = s.Value
		}
	}
	return
}
