// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-mcp server.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/meshintel/paper-mcp/internal/config"
	"github.com/meshintel/paper-mcp/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretOrEnv returns the secret value for key if present, falling back to
// an already-resolved flag/env value when the secret file is absent.
func secretOrEnv(key, fallback string) string {
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return fallback
}

// rootCmd is the base command for the paper-mcp CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-mcp",
	Short: "MCP server for federated academic paper search and acquisition",
	Long: `paper-mcp speaks the Model Context Protocol over stdio, exposing tools for
federated paper search, PDF acquisition, metadata extraction, bibliography
generation, categorization, and code search across a federation of academic
providers (arXiv, Semantic Scholar, OpenAlex, Crossref, PatentsView,
Unpaywall, DOAJ, CORE).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	config.BindFlags(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
