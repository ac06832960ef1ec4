package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"slipway/src/jenkins"
)

// jobCmd groups the job lifecycle subcommands.
var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Manage Jenkins jobs",
}

var (
	jobConfigFile  string
	templateParams []string
)

// jobShowCmd reports what exists at a path.
var jobShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show what exists at a path (job, folder or nothing)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemType, err := client.GetItemType(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("inspect %s: %w", args[0], err)
		}
		switch itemType {
		case jenkins.ItemNone:
			fmt.Printf("%s: not found\n", args[0])
		case jenkins.ItemFolder:
			fmt.Printf("%s: folder\n", args[0])
		default:
			fmt.Printf("%s: job\n", args[0])
		}
		return nil
	},
}

// jobApplyCmd creates or updates a job from a config.xml file.
var jobApplyCmd = &cobra.Command{
	Use:   "apply <name>",
	Short: "Create or update a job from a config.xml file",
	Long: `Creates the job if it does not exist, otherwise replaces its
configuration. Parent folders must already exist. Fails if the path is
occupied by a folder.

Example:
  slipway job apply teams/a/deploy --config-file deploy.xml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(jobConfigFile)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := client.CreateUpdateJob(cmd.Context(), args[0], string(data)); err != nil {
			return fmt.Errorf("apply job %s: %w", args[0], err)
		}
		fmt.Printf("applied %s\n", args[0])
		return nil
	},
}

// jobFromTemplateCmd instantiates a job from a server-side template.
var jobFromTemplateCmd = &cobra.Command{
	Use:   "from-template <template> <name>",
	Short: "Create or update a job from a Jenkins template",
	Long: `Instantiates the named template into a job, substituting --param
values into the template.

Example:
  slipway job from-template templates/deploy teams/a/deploy --param BRANCH=main`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(templateParams)
		if err != nil {
			return err
		}
		if err := client.CreateUpdateJobFromTemplate(cmd.Context(), args[0], args[1], params); err != nil {
			return fmt.Errorf("instantiate %s from %s: %w", args[1], args[0], err)
		}
		fmt.Printf("applied %s from template %s\n", args[1], args[0])
		return nil
	},
}

// jobDeleteCmd deletes a job or folder.
var jobDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a job or folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deleted, err := client.DeleteItem(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("delete %s: %w", args[0], err)
		}
		if deleted {
			fmt.Printf("deleted %s\n", args[0])
		} else {
			fmt.Printf("%s did not exist\n", args[0])
		}
		return nil
	},
}

// folderCmd groups the folder subcommands.
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage Jenkins folders",
}

// folderCreateCmd creates a folder.
var folderCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a folder (no-op if it already exists)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := client.CreateSimpleFolder(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("create folder %s: %w", args[0], err)
		}
		if created {
			fmt.Printf("created folder %s\n", args[0])
		} else {
			fmt.Printf("folder %s already exists\n", args[0])
		}
		return nil
	},
}

// folderJobsCmd reports whether a folder contains jobs.
var folderJobsCmd = &cobra.Command{
	Use:   "jobs <name>",
	Short: "Report whether a folder contains any jobs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hasJobs, err := client.FolderHasJobs(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("list folder %s: %w", args[0], err)
		}
		if hasJobs {
			fmt.Printf("folder %s contains jobs\n", args[0])
		} else {
			fmt.Printf("folder %s is empty\n", args[0])
		}
		return nil
	},
}

// parseParams turns repeated "key=value" flags into a parameter map.
func parseParams(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(raw))
	for _, pair := range raw {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --param %q, want key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}

func init() {
	jobApplyCmd.Flags().StringVar(&jobConfigFile, "config-file", "", "path to the job config.xml (required)")
	_ = jobApplyCmd.MarkFlagRequired("config-file")
	jobFromTemplateCmd.Flags().StringArrayVar(&templateParams, "param", nil, "template parameter as key=value (repeatable)")

	jobCmd.AddCommand(jobShowCmd)
	jobCmd.AddCommand(jobApplyCmd)
	jobCmd.AddCommand(jobFromTemplateCmd)
	jobCmd.AddCommand(jobDeleteCmd)

	folderCmd.AddCommand(folderCreateCmd)
	folderCmd.AddCommand(folderJobsCmd)
}
