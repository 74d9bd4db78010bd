package app

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Command はアプリケーションのサブコマンド名を表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandCleanup は期限切れセッションを1回だけ削除することを示す。
	CommandCleanup Command = "cleanup"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// NewRootCommand はsoullogのcobraルートコマンドを構築する。
// サブコマンドなしで起動した場合はserveとして動作する。
// wはログ出力先で、nilの場合はos.Stdoutを使う。
func NewRootCommand(w io.Writer) *cobra.Command {
	if w == nil {
		w = os.Stdout
	}

	serve := func(cmd *cobra.Command, args []string) error {
		return runCommand(w, CommandServe)
	}

	root := &cobra.Command{
		Use:           "soullog",
		Short:         "Mind/Body/Soul Log API server",
		Long:          "soullog is the backend of the Mind/Body/Soul wellness journal: Google sign-in, journal entries and wellness stats.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   string(CommandServe),
			Short: "Start the HTTP API server",
			Args:  cobra.NoArgs,
			RunE:  serve,
		},
		&cobra.Command{
			Use:   string(CommandMigrate),
			Short: "Apply all pending database migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCommand(w, CommandMigrate)
			},
		},
		&cobra.Command{
			Use:   string(CommandCleanup),
			Short: "Delete expired sessions once and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCommand(w, CommandCleanup)
			},
		},
		newHealthcheckCommand(),
	)

	return root
}

// newHealthcheckCommand は設定を読み込まずに/healthを叩く軽量コマンドを返す。
func newHealthcheckCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "Probe the local /health endpoint (for container health checks)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = os.Getenv("PORT")
			}
			if port == "" {
				port = defaultPort
			}
			return runHealthcheck(port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "port of the local API server (default: $PORT or 4000)")
	return cmd
}
