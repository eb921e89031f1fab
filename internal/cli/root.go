package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/t3vo/internal/config"
	"github.com/dmitrijs2005/t3vo/internal/logging"
	"github.com/dmitrijs2005/t3vo/internal/models"
	"github.com/spf13/cobra"
)

// globalFlags mirrors the flags consumed by config.Load so that cobra
// accepts them and lists them in help. The parsed values are never read:
// config.Load has already applied them before the command tree is built.
type globalFlags struct {
	config   string
	dataDir  string
	autolock int
	logLevel string
}

// Execute loads the configuration from args, runs the matching command and
// releases every resource before returning.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	app, err := NewApp(cfg, logger, in, out)
	if err != nil {
		return err
	}
	defer app.Close()

	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree around a. Without a subcommand the
// interactive shell starts.
func NewRootCommand(a *App) *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "t3vo",
		Short:         "Encrypted local vault for notes, bookmarks and passwords",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.Shell(cmd.Context())
		},
	}

	// Declared for parsing and help only; see globalFlags.
	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.config, "config", "c", "", "JSON or TOML config file")
	pf.StringVarP(&g.dataDir, "data-dir", "d", a.config.DataDir, "directory holding the vault databases")
	pf.IntVarP(&g.autolock, "autolock", "l", int(a.config.AutoLockTimeout.Seconds()), "auto-lock timeout in seconds, 0 disables")
	pf.StringVar(&g.logLevel, "log-level", a.config.Log.Level, "debug, info, warn or error")

	cmd.AddCommand(
		newShellCommand(a),
		newListCommand(a),
		newShowCommand(a),
		newAddCommand(a),
		newEditCommand(a),
		newDeleteCommand(a),
		newBackupCommand(a),
		newRestoreCommand(a),
		newStatusCommand(a),
	)
	return cmd
}

// Shell unlocks the vault and runs the interactive loop.
func (a *App) Shell(ctx context.Context) error {
	fmt.Fprintln(a.out, "t3vo (type 'help' for commands)")
	if err := a.Unlock(ctx); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
	}
	runREPL(ctx, a, a.status, a.reader, a.out)
	return nil
}

func newShellCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.Shell(cmd.Context())
		},
	}
}

func newListCommand(a *App) *cobra.Command {
	var sort string
	cmd := &cobra.Command{
		Use:       "list <collection>",
		Aliases:   []string{"ls"},
		Short:     "List records of a collection",
		Args:      cobra.ExactArgs(1),
		ValidArgs: collectionNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := models.ParseCollection(args[0])
			if err != nil {
				return err
			}
			order, err := ParseOrder(sort)
			if err != nil {
				return err
			}
			return a.List(cmd.Context(), c, order)
		},
	}
	cmd.Flags().StringVar(&sort, "sort", "id", "sort by id, title or updated")
	return cmd
}

func newShowCommand(a *App) *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "show <collection> <id>",
		Short: "Show a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := models.ParseCollection(args[0])
			if err != nil {
				return err
			}
			return a.Show(cmd.Context(), c, args[1], reveal)
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print passwords and TOTP secrets")
	return cmd
}

func newAddCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:       "add <collection>",
		Short:     "Add a record interactively",
		Args:      cobra.ExactArgs(1),
		ValidArgs: collectionNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := models.ParseCollection(args[0])
			if err != nil {
				return err
			}
			return a.Add(cmd.Context(), c)
		},
	}
}

func newEditCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <collection> <id>",
		Short: "Edit a record interactively",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := models.ParseCollection(args[0])
			if err != nil {
				return err
			}
			return a.Edit(cmd.Context(), c, args[1])
		},
	}
}

func newDeleteCommand(a *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "delete <collection> <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a record",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := models.ParseCollection(args[0])
			if err != nil {
				return err
			}
			return a.Delete(cmd.Context(), c, args[1], force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return cmd
}

func newBackupCommand(a *App) *cobra.Command {
	var (
		target string
		list   bool
	)
	cmd := &cobra.Command{
		Use:   "backup [name]",
		Short: "Write an encrypted backup of the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return a.Backups(cmd.Context(), target)
			}
			return a.Backup(cmd.Context(), target, optional(args, 0))
		},
	}
	cmd.Flags().StringVar(&target, "target", TargetFile, fmt.Sprintf("%s or %s", TargetFile, TargetS3))
	cmd.Flags().BoolVar(&list, "list", false, "list existing backups instead")
	return cmd
}

func newRestoreCommand(a *App) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "restore <name>",
		Short: "Restore a backup into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Restore(cmd.Context(), target, args[0])
		},
	}
	cmd.Flags().StringVar(&target, "target", TargetFile, fmt.Sprintf("%s or %s", TargetFile, TargetS3))
	return cmd
}

func newStatusCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.Status(cmd.Context())
		},
	}
}

func collectionNames() []string {
	names := make([]string, 0, len(models.Collections))
	for _, c := range models.Collections {
		names = append(names, string(c))
	}
	return names
}
