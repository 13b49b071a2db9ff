package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/cmd"
	"github.com/thoreinstein/clawmgr/pkg/fileutil"
)

var (
	versionShort bool
	versionJSON  bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output as JSON")
	versionCmd.MarkFlagsMutuallyExclusive("short", "json")
	rootCmd.AddCommand(versionCmd)
}

type versionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		w := c.OutOrStdout()
		info := versionInfo{
			Version: cmd.Version, Commit: cmd.Commit, Date: cmd.Date,
			Go: runtime.Version(), OS: runtime.GOOS, Arch: runtime.GOARCH,
		}
		switch {
		case versionShort:
			fmt.Fprintln(w, info.Version)
		case versionJSON:
			data, err := fileutil.MarshalJSON(info)
			if err != nil {
				return err
			}
			_, err = w.Write(data)
			return err
		default:
			fmt.Fprintf(w, "clawmgr version %s (%s/%s, %s)\n", info.Version, info.OS, info.Arch, info.Go)
			fmt.Fprintf(w, "  commit: %s\n  built:  %s\n", info.Commit, info.Date)
		}
		return nil
	},
}
