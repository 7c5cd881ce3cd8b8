// marketctl 运维命令行：离线校验批量导入 CSV、签发开发用 token
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "marketctl",
		Short:         "Marketplace admin tooling",
		SilenceUsage: true,
	}
	root.AddCommand(newCSVCheckCmd(), newTokenCmd())
	return root
}
