package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/angelospk/subdivx-go/internal/constants"
	"github.com/angelospk/subdivx-go/pkg/core/metadata"
	"github.com/angelospk/subdivx-go/pkg/core/subdivx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Define configuration keys
const (
	CfgKeyUsername           = "subdivx.username"
	CfgKeyPassword           = "subdivx.password"
	CfgKeyBaseURL            = "subdivx.base_url"
	CfgKeyUserAgent          = "subdivx.user_agent"
	CfgKeyTimeout            = "subdivx.timeout"
	CfgKeyInsecureSkipVerify = "subdivx.insecure_skip_verify"
	CfgKeyMaxPages           = "subdivx.max_pages"
	CfgKeyRequireCredentials = "subdivx.require_credentials"
	CfgKeyConfigDir          = "config_dir"

	CfgKeyLogLevel      = "log.level"
	CfgKeyLogFile       = "log.file"
	CfgKeyLogMaxSize    = "log.max_size"
	CfgKeyLogMaxBackups = "log.max_backups"
	CfgKeyLogMaxAge     = "log.max_age"
)

// Session is what the commands need from a subdivx provider.
type Session interface {
	Initialize(ctx context.Context) error
	Terminate(ctx context.Context) error
	LoggedIn() bool
	Query(ctx context.Context, query string) ([]*subdivx.Subtitle, error)
	ListSubtitles(ctx context.Context, video *metadata.Video, languages []language.Tag) ([]*subdivx.Subtitle, error)
	DownloadSubtitle(ctx context.Context, sub *subdivx.Subtitle) error
}

// NewProviderFunc allows overriding the provider creation for testing.
var NewProviderFunc = func(cfg subdivx.Config) (Session, error) {
	p, err := subdivx.NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

var (
	// Used for flags.
	cfgFile  string
	logLevel string

	// logger is shared by every command; configureLogging sets it up.
	logger = logrus.New()

	// RootCmd represents the base command when called without any subcommands
	// Exported for use in tests
	RootCmd = &cobra.Command{
		Use:   "subdivx",
		Short: "Search and download Spanish subtitles from subdivx.com",
		Long: `subdivx searches subdivx.com for subtitles matching your video files,
ranks the results against the file name and saves the best one next to the video.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogging(cmd.ErrOrStderr())
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.subdivx/config.yaml or ./config.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	viper.SetDefault(CfgKeyBaseURL, constants.DefaultBaseURL)
	viper.SetDefault(CfgKeyUserAgent, constants.DefaultUserAgent)
	viper.SetDefault(CfgKeyTimeout, constants.DefaultTimeout*time.Second)
	viper.SetDefault(CfgKeyInsecureSkipVerify, false)
	viper.SetDefault(CfgKeyMaxPages, 0)
	viper.SetDefault(CfgKeyRequireCredentials, false)
	viper.SetDefault(CfgKeyLogLevel, "info")
	viper.SetDefault(CfgKeyLogMaxSize, 10)
	viper.SetDefault(CfgKeyLogMaxBackups, 3)
	viper.SetDefault(CfgKeyLogMaxAge, 28)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".subdivx"))
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("SUBDIVX") // e.g. SUBDIVX_SUBDIVX_USERNAME
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error reading config file (%s): %v\n", viper.ConfigFileUsed(), err)
		}
	}
}

// configureLogging applies the log level and the optional rotating log file.
func configureLogging(stderr io.Writer) error {
	levelName := logLevel
	if levelName == "" {
		levelName = viper.GetString(CfgKeyLogLevel)
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", levelName, err)
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	out := stderr
	if file := viper.GetString(CfgKeyLogFile); file != "" {
		out = io.MultiWriter(stderr, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    viper.GetInt(CfgKeyLogMaxSize),
			MaxBackups: viper.GetInt(CfgKeyLogMaxBackups),
			MaxAge:     viper.GetInt(CfgKeyLogMaxAge),
		})
	}
	logger.SetOutput(out)

	// Library packages log through the standard logger.
	logrus.SetLevel(level)
	logrus.SetOutput(out)
	return nil
}

// providerConfig builds the provider settings from viper.
func providerConfig() subdivx.Config {
	return subdivx.Config{
		Username:           viper.GetString(CfgKeyUsername),
		Password:           viper.GetString(CfgKeyPassword),
		BaseURL:            viper.GetString(CfgKeyBaseURL),
		UserAgent:          viper.GetString(CfgKeyUserAgent),
		Timeout:            viper.GetDuration(CfgKeyTimeout),
		InsecureSkipVerify: viper.GetBool(CfgKeyInsecureSkipVerify),
		MaxPages:           viper.GetInt(CfgKeyMaxPages),
		RequireCredentials: viper.GetBool(CfgKeyRequireCredentials),
		Logger:             logger,
	}
}

// configDir is where the download history lives.
func configDir() (string, error) {
	if dir := viper.GetString(CfgKeyConfigDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get home directory: %w", err)
	}
	return filepath.Join(home, ".subdivx"), nil
}

// withSession opens a provider session, runs fn and always closes it.
func withSession(ctx context.Context, cfg subdivx.Config, fn func(Session) error) (err error) {
	session, err := NewProviderFunc(cfg)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	defer func() {
		if termErr := session.Terminate(ctx); termErr != nil {
			logger.Warnf("Failed to close session: %v", termErr)
			if err == nil {
				err = termErr
			}
		}
	}()
	if err := session.Initialize(ctx); err != nil {
		return err
	}
	return fn(session)
}

// parseLanguages turns "es-MX,es" into tags.
func parseLanguages(values []string) ([]language.Tag, error) {
	var tags []language.Tag
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		tag, err := language.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", v, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
