// Package main provides the slipway MCP server entry point. It exposes the
// Jenkins client as MCP tools over stdio so agents can trigger and follow
// builds.
package main

import (
	"fmt"
	"os"

	"slipway/src/config"
	"slipway/src/jenkins"
	"slipway/src/mcp"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	client, err := jenkins.NewClient(cfg.JenkinsURL, cfg.JenkinsUser, cfg.JenkinsAPIToken)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
		os.Exit(1)
	}

	if err := mcp.NewServer(client).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
