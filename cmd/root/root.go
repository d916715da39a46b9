package root

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	rget "github.com/rget/rget/pkg"
	"github.com/rget/rget/pkg/cli"
	"github.com/rget/rget/pkg/client"
	"github.com/rget/rget/pkg/config"
	"github.com/rget/rget/pkg/logging"
	"github.com/rget/rget/pkg/optname"
)

const rootLongDesc = `
rget

rget downloads a single file over HTTP by splitting it into equal byte ranges and fetching every range
concurrently, one worker per range. Each worker writes what it receives straight into the output file at
its own offset, so the file is assembled in place without temporary part files.

The size of the file is learned from a HEAD request before anything is downloaded. If the server does not
report a size, rget stops without creating the output file.

A range that fails to download does not stop the others. rget still exits successfully, reports which
ranges failed and leaves their bytes unwritten in the output file.
`

func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rget [flags] <url>",
		Short: "rget",
		Long:  rootLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.PersistentStartupProcessFlags()
		},
		RunE:    runRootCMD,
		Args:    cobra.ExactArgs(1),
		Example: `  rget -t 8 -o file.tar.gz https://example.com/file.tar.gz`,
	}
	cmd.SetUsageTemplate(cli.UsageTemplate)
	err := config.AddRootPersistentFlags(cmd)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return cmd
}

func runRootCMD(cmd *cobra.Command, args []string) error {
	// After we run through the PreRun functions we want to silence usage from being printed
	// on all errors
	cmd.SilenceUsage = true

	urlString := args[0]
	dest := viper.GetString(optname.Output)
	if dest == "" {
		dest = cli.DestinationFromURL(urlString)
	}

	logger := logging.GetLogger()
	logger.Info().Str("url", urlString).
		Str("dest", dest).
		Int("threads", viper.GetInt(optname.Threads)).
		Msg("Initiating")

	getter, err := newGetter(dest)
	if err != nil {
		return err
	}
	result, err := getter.DownloadFile(cmd.Context(), urlString, dest)
	if err != nil {
		return err
	}
	for _, failure := range result.Failed {
		logger.Warn().
			Int("range", failure.Range.Index).
			Str("bytes", failure.Range.String()).
			Int64("written", failure.Written).
			Err(failure.Err).
			Msg("Missing range")
	}
	return nil
}

// newGetter builds a Getter from the flags and environment held by viper.
func newGetter(dest string) (*rget.Getter, error) {
	bufferSize, err := humanize.ParseBytes(viper.GetString(optname.BufferSize))
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", optname.BufferSize, err)
	}
	if bufferSize == 0 {
		return nil, fmt.Errorf("invalid %s: must be greater than zero", optname.BufferSize)
	}
	resolveOverrides, err := config.ResolveOverrides()
	if err != nil {
		return nil, err
	}

	clientOpts := client.Options{
		ForceHTTP2:       viper.GetBool(optname.ForceHTTP2),
		ConnectTimeout:   viper.GetDuration(optname.ConnTimeout),
		Timeout:          viper.GetDuration(optname.RequestTimeout),
		ResolveOverrides: resolveOverrides,
	}
	getter := &rget.Getter{
		Client:      client.NewHTTPClient(clientOpts),
		Workers:     viper.GetInt(optname.Threads),
		BufferSize:  int(bufferSize),
		EchoHeaders: viper.GetBool(optname.Verbose),
	}
	if viper.GetBool(optname.Progress) {
		getter.NewProgress = cli.NewProgressBar(os.Stderr, dest)
	}
	return getter, nil
}
