package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rget/rget/pkg/logging"
	"github.com/rget/rget/pkg/optname"
)

const (
	DefaultThreads    = 4
	DefaultBufferSize = "32KiB"
	envPrefix         = "RGET"
)

func AddRootPersistentFlags(cmd *cobra.Command) error {
	// Persistent Flags (applies to all commands/subcommands)
	cmd.PersistentFlags().IntP(optname.Threads, "t", DefaultThreads, "Number of concurrent workers, one byte range each")
	cmd.PersistentFlags().StringP(optname.Output, "o", "", "Output file path (default: last segment of the URL path)")
	cmd.PersistentFlags().BoolP(optname.Verbose, "v", false, "Verbose mode, echoes probe response headers (implies --log-level debug)")
	cmd.PersistentFlags().String(optname.LoggingLevel, "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Duration(optname.ConnTimeout, 5*time.Second, "Timeout for establishing a connection, format is <number><unit>, e.g. 10s")
	cmd.PersistentFlags().Duration(optname.RequestTimeout, 0, "Upper bound for a single request including its body, 0 disables")
	cmd.PersistentFlags().String(optname.BufferSize, DefaultBufferSize, "Read buffer size per worker (e.g. 64K)")
	cmd.PersistentFlags().StringSlice(optname.Resolve, []string{}, "Resolve hostnames to specific IPs, format <hostname>:<port>:<ip>")
	cmd.PersistentFlags().Bool(optname.Progress, false, "Show a progress bar on stderr")
	cmd.PersistentFlags().Bool(optname.ForceHTTP2, false, "Force HTTP/2")

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	// Hidden, intended for testing/debugging only
	if err := cmd.PersistentFlags().MarkHidden(optname.ForceHTTP2); err != nil {
		return fmt.Errorf("failed to hide flag %s: %w", optname.ForceHTTP2, err)
	}
	return nil
}

func PersistentStartupProcessFlags() error {
	if viper.GetBool(optname.Verbose) {
		viper.Set(optname.LoggingLevel, "debug")
	}
	setLogLevel(viper.GetString(optname.LoggingLevel))
	if viper.GetInt(optname.Threads) < 1 {
		return fmt.Errorf("invalid --%s %d: must be at least 1", optname.Threads, viper.GetInt(optname.Threads))
	}
	if _, err := ResolveOverrides(); err != nil {
		return err
	}
	return nil
}

// ResolveOverrides parses the --resolve values currently held by viper.
func ResolveOverrides() (map[string]string, error) {
	overrides, err := ResolveOverridesToMap(viper.GetStringSlice(optname.Resolve))
	if err != nil {
		return nil, err
	}
	logger := logging.GetLogger()
	for key, elem := range overrides {
		logger.Debug().Str("host_port", key).Str("resolve_target", elem).Msg("Config")
	}
	return overrides, nil
}

func setLogLevel(logLevel string) {
	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// ResolveOverridesToMap converts a list of <hostname>:<port>:<ip> entries into a map of
// host:port to ip:port. It returns nil when the list is empty.
func ResolveOverridesToMap(resolveHosts []string) (map[string]string, error) {
	if len(resolveHosts) == 0 {
		return nil, nil
	}
	resolveOverrides := make(map[string]string)
	for _, resolveHost := range resolveHosts {
		split := strings.SplitN(resolveHost, ":", 3)
		if len(split) != 3 {
			return nil, fmt.Errorf("invalid resolve host format, expected <hostname>:port:<ip>, got: %s", resolveHost)
		}
		host, port, addr := split[0], split[1], split[2]
		if net.ParseIP(host) != nil {
			return nil, fmt.Errorf("invalid hostname specified, looks like an IP address: %s", host)
		}
		if net.ParseIP(addr) == nil {
			return nil, fmt.Errorf("invalid IP address: %s", addr)
		}
		hostPort := net.JoinHostPort(host, port)
		target := net.JoinHostPort(addr, port)
		if existing, ok := resolveOverrides[hostPort]; ok && existing != target {
			return nil, fmt.Errorf("duplicate host:port specified: %s", hostPort)
		}
		resolveOverrides[hostPort] = target
	}
	return resolveOverrides, nil
}
