// Package main provides the slipway CLI. It drives a Jenkins server over
// its REST API: managing folders and jobs, triggering builds and following
// them to completion.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"slipway/src/config"
	"slipway/src/jenkins"
	"slipway/src/logger"
)

var (
	// Application configuration, loaded once before any command runs.
	appConfig *config.Config
	// Jenkins client shared by all subcommands.
	client *jenkins.Client
	// Shared logger; verbosity is controlled by the --verbose flag.
	log logger.Logger

	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "slipway",
	Short: "Slipway - a Jenkins job and build orchestrator",
	Long: `Slipway manages Jenkins jobs and folders and drives builds from the
command line.

Configuration comes from the environment:
- JENKINS_URL (required): base URL of the Jenkins server
- JENKINS_USER / JENKINS_API_TOKEN: basic auth credentials (optional)
- SLIPWAY_BROKERS: Kafka/Redpanda seed brokers for build event publishing (optional)
- SLIPWAY_DB_DSN: Postgres DSN for the build-history store (optional)`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		appConfig, err = config.LoadFromEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
			fmt.Fprintln(os.Stderr, "Please set the JENKINS_URL environment variable")
			os.Exit(1)
		}

		log = logger.NewConsoleLogger(verbose)

		client, err = jenkins.NewClient(appConfig.JenkinsURL, appConfig.JenkinsUser, appConfig.JenkinsAPIToken)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
