package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "tgroute",
	Short: "Runs a Telegram bot on the tgroute update router",
	Long: `Runs a Telegram bot whose updates are dispatched by tgroute.

Every flag can also be set with a TGROUTE_ prefixed environment variable
(e.g. TGROUTE_BOT_TOKEN) or in a YAML file passed with --config.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "C", "", "path to a YAML configuration file")
	flags.StringP("log-level", "l", "info", "log level (one of [trace, debug, info, warn, error])")
	flags.String("log-format", "text", "log format (one of [text, json])")
	flags.String("bot-token", "", "the Telegram bot token")
	flags.String("session-backend", "memory", "where continuations are kept (one of [memory, redis, mysql, sqlite, mongo])")
	flags.String("redis-addr", "localhost:6379", "redis address for the redis session backend")
	flags.String("redis-username", "", "redis username")
	flags.String("redis-password", "", "redis password")
	flags.Int("redis-db", 0, "redis database number")
	flags.String("sql-dsn", "./data/tgroute.db", "DSN for the mysql and sqlite session backends")
	flags.String("mongo-uri", "mongodb://localhost:27017", "mongo connection URI for the mongo session backend")
	flags.String("mongo-database", "tgroute", "mongo database for the mongo session backend")
	flags.Duration("continuation-ttl", 0, "how long a force-reply prompt stays pending (0 uses the router default)")

	viper.SetEnvPrefix("tgroute")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}

	logrus.SetOutput(os.Stderr)
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pollCmd)
}

func initConfig() {
	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			logrus.Fatalf("failed to read config at path[%s]: %s", path, err)
		}
		logrus.Debugf("using configuration at path[%s]", path)
	}

	level, err := logrus.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		logrus.Warnf("unknown log level %q, using info", viper.GetString("log-level"))
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if viper.GetString("log-format") == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
