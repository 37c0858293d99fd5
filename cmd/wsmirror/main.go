// Command wsmirror drives the mirroring engine directly from the
// command line, without going through the IPC daemon. It uses
// spf13/cobra for the command tree, spf13/viper for flag/env config
// merging, and an optional TOML rule file (see config.go) read with
// BurntSushi/toml.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wsmirror/internal/mirror"
)

const (
	defaultMaxStaticFileSize = 50 * 1024 * 1024
	defaultMaxDepth          = 1
	defaultProgressInterval  = 250
)

var rootCmd = &cobra.Command{
	Use:   "wsmirror",
	Short: "Mirror a website to a local directory for offline browsing",
}

var mirrorCmd = &cobra.Command{
	Use:   "mirror <url> <dest-dir>",
	Short: "Fetch a seed page and its in-host pages/assets up to a depth bound",
	Args:  cobra.ExactArgs(2),
	RunE:  runMirror,
}

func init() {
	mirrorCmd.Flags().Int64("max-file-size", defaultMaxStaticFileSize, "Maximum size, in bytes, for an asset with a known Content-Length")
	mirrorCmd.Flags().Bool("download-unknown-size", false, "Download assets whose Content-Length is absent")
	mirrorCmd.Flags().Int64("progress-interval", defaultProgressInterval, "Minimum milliseconds between progress events for one resource")
	mirrorCmd.Flags().Int("max-depth", defaultMaxDepth, "Anchor-link hops beyond the seed to follow")
	mirrorCmd.Flags().StringSlice("blacklist", nil, "URL substrings to skip")
	mirrorCmd.Flags().Bool("abort-on-error", false, "Abort the whole session on the first bad asset status")
	mirrorCmd.Flags().String("rule-file", "", "Optional TOML file overlaying DownloadRule fields onto the flag defaults")

	if err := viper.BindPFlags(mirrorCmd.Flags()); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("WSMIRROR")
	viper.AutomaticEnv()

	rootCmd.AddCommand(mirrorCmd)
}

func runMirror(cmd *cobra.Command, args []string) error {
	seedURL, destDir := args[0], args[1]

	rule := mirror.DownloadRule{
		MaxStaticFileSize:                     viper.GetInt64("max-file-size"),
		DownloadStaticResourceWithUnknownSize: viper.GetBool("download-unknown-size"),
		ProgressUpdateInterval:                viper.GetInt64("progress-interval"),
		MaxDepth:                              viper.GetInt("max-depth"),
		BlackList:                             viper.GetStringSlice("blacklist"),
		AbortOnDownloadError:                  viper.GetBool("abort-on-error"),
	}

	rule, err := applyRuleFile(viper.GetString("rule-file"), rule)
	if err != nil {
		return fmt.Errorf("loading rule file: %w", err)
	}

	updates := make(chan mirror.Update, mirror.DefaultUpdateChannelCapacity)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range updates {
			logUpdate(logger, u)
		}
	}()

	err = mirror.Run(context.Background(), newSessionID(), seedURL, destDir, rule, updates)
	close(updates)
	<-done

	if err != nil {
		return fmt.Errorf("mirroring %s: %w", seedURL, err)
	}
	logger.Info("mirror complete", "seed", seedURL, "dest", destDir)
	return nil
}

func logUpdate(logger *slog.Logger, u mirror.Update) {
	switch v := u.(type) {
	case mirror.Progress:
		logger.Debug("progress", "resource", v.ResourceName(), "bytes_written", v.BytesWritten, "file_size", v.FileSize)
	case mirror.Message:
		if v.IsError {
			logger.Warn(v.Content, "resource", v.ResourceName())
		} else {
			logger.Info(v.Content, "resource", v.ResourceName())
		}
	}
}

func newSessionID() string {
	return fmt.Sprintf("cli-%d-%d", os.Getpid(), time.Now().UnixNano())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
