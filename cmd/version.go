package cmd

import (
	"fmt"
	"runtime"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/pinmeto"
)

// Version is the release string. Production builds overwrite it via:
//
//	go build -ldflags "-X github.com/PinMeTo/pinmeto-location-mcp-sub001/cmd.Version=v1.2.0"
var Version = "v1.0.0"

// BuildTime is optionally injected at build time alongside Version.
var BuildTime = ""

type versionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	GOOS      string `json:"goos"`
	GOARCH    string `json:"goarch"`
	BuildTime string `json:"build_time,omitempty"`
	UserAgent string `json:"user_agent"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pinmeto-mcp version and build information",
	Long: `Print the version string and build metadata.

Default output is plain text. Use --format json for structured output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{
			Version:   Version,
			GoVersion: runtime.Version(),
			GOOS:      runtime.GOOS,
			GOARCH:    runtime.GOARCH,
			BuildTime: BuildTime,
			UserAgent: pinmeto.UserAgent,
		}

		switch globalFlags.Format {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		case "jsonl":
			b, err := json.Marshal(info)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", b)
			return nil
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "pinmeto-mcp %s\n", info.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "go          %s\n", info.GoVersion)
			fmt.Fprintf(cmd.OutOrStdout(), "os          %s/%s\n", info.GOOS, info.GOARCH)
			if info.BuildTime != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "built       %s\n", info.BuildTime)
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	cobra.OnInitialize(func() {
		pinmeto.UserAgent = "pinmeto-location-mcp/" + Version
	})
}
