// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stratastor/warren/cmd/config"
	"github.com/stratastor/warren/cmd/health"
	"github.com/stratastor/warren/cmd/logs"
	"github.com/stratastor/warren/cmd/serve"
	"github.com/stratastor/warren/cmd/status"
	"github.com/stratastor/warren/cmd/version"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "warren",
		Short: "Warren: StrataSTOR ACL Management Engine",
	}

	rootCmd.AddCommand(serve.NewServeCmd())
	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(health.NewHealthCmd())
	rootCmd.AddCommand(status.NewStatusCmd())
	rootCmd.AddCommand(logs.NewLogsCmd())
	rootCmd.AddCommand(config.NewConfigCmd())

	return rootCmd
}
