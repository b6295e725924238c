package cmd

import (
	"context"
	"fmt"
	u "net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/fetcher/internal/config"
	"github.com/tanq16/fetcher/internal/utils"
)

var (
	configFile    string
	debug         bool
	workers       int
	kaTimeout     time.Duration
	userAgent     string
	proxyURL      string
	proxyUsername string
	proxyPassword string
	headers       []string
	progressFile  string
	noProgress    bool
)

var (
	appConfig        config.Config
	globalHTTPConfig utils.HTTPClientConfig
	sharedClient     *utils.FetchHTTPClient
)

var FetcherVersion = "dev"

var rootCmd = &cobra.Command{
	Use:           "fetcher",
	Short:         "fetcher is a tiered parallel HTTP downloader",
	Version:       FetcherVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		utils.InitLogger(debug)
		return loadSettings(cmd)
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 1, "Number of links to download in parallel")
	rootCmd.PersistentFlags().DurationVarP(&kaTimeout, "keep-alive-timeout", "k", 90*time.Second, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent (\"randomize\" picks a browser agent)")
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.PersistentFlags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")
	rootCmd.PersistentFlags().StringVar(&progressFile, "progress-file", utils.DefaultProgressFile, "Path of the JSON progress status file")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable the terminal progress bar")

	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newS3Cmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newCleanCmd())
}

// loadSettings layers defaults, the config file, the environment and finally
// explicitly set flags, then builds the process-wide HTTP client.
func loadSettings(cmd *cobra.Command) error {
	appConfig = config.Default()
	if configFile != "" {
		cfg, err := config.LoadFromFile(configFile)
		if err != nil {
			return err
		}
		appConfig = cfg
	}
	if err := appConfig.LoadFromEnv(); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("workers") {
		appConfig.Workers = workers
	}
	if flags.Changed("user-agent") {
		appConfig.UserAgent = userAgent
	}
	if flags.Changed("proxy") {
		appConfig.Proxy = proxyURL
	}
	if flags.Changed("progress-file") {
		appConfig.ProgressFile = progressFile
	}
	if len(headers) > 0 {
		if appConfig.Headers == nil {
			appConfig.Headers = make(map[string]string)
		}
		for k, v := range utils.ParseHeaderArgs(headers) {
			appConfig.Headers[k] = v
		}
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	agent := appConfig.UserAgent
	if agent == "randomize" {
		agent = utils.GetRandomUserAgent()
	}
	proxy, user, pass := appConfig.Proxy, proxyUsername, proxyPassword
	// credentials embedded in the proxy URL are passed separately
	if parsedProxy, err := u.Parse(proxy); err == nil && parsedProxy.User != nil && user == "" {
		user = parsedProxy.User.Username()
		if password, set := parsedProxy.User.Password(); set {
			pass = password
		}
		parsedProxy.User = nil
		proxy = parsedProxy.String()
	}
	globalHTTPConfig = utils.HTTPClientConfig{
		KATimeout:     kaTimeout,
		ProxyURL:      proxy,
		ProxyUsername: user,
		ProxyPassword: pass,
		UserAgent:     agent,
		Headers:       appConfig.Headers,
	}
	sharedClient = utils.NewFetchHTTPClient(globalHTTPConfig)
	return nil
}
