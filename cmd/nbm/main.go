package main

import (
	"errors"
	"fmt"
	"iter"
	"os"

	"nbm/internal/app"
	"nbm/internal/config"
	"nbm/internal/nbm"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an NBMApp. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "NewList", "Backup").
func newApp(operation string) (*app.NBMApp, error) {
	defaults := app.GetDefaults()

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewNBMApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// closeApp closes a and reports a failure to save, without hiding err.
func closeApp(a *app.NBMApp, err *error) {
	if cerr := a.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("saving lists: %w", cerr)
	}
}

var rootCmd = &cobra.Command{
	Use:          "nbm",
	Short:        "Backup manager for lists of files and directories",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults := app.GetDefaults()

		cfg := config.NewConfig(defaults["data_dir"])
		cfg.LogDir = defaults["log_dir"]

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Data Dir: %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults := app.GetDefaults()

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Data Dir:       %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:        %s\n", cfg.LogDir)
		fmt.Printf("Database:       %s\n", cfg.Database.Type)
		fmt.Printf("Strict:         %t\n", cfg.Backup.Strict)
		fmt.Printf("Failure Policy: %s\n", cfg.Backup.FailurePolicy)
		fmt.Printf("List Snapshot:  %s\n", cfg.Snapshot.ListPath)
		fmt.Printf("Ignore:         %v\n", cfg.Filesystem.Ignore)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Manage resource lists",
	RunE:  runListShow,
}

var listShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all lists",
	RunE:  runListShow,
}

func runListShow(cmd *cobra.Command, args []string) (err error) {
	a, err := newApp("ShowLists")
	if err != nil {
		return err
	}
	defer closeApp(a, &err)

	printMention(cmd.OutOrStdout(), a.Registry().Mention())
	return nil
}

var listNewCmd = &cobra.Command{
	Use:   "new NAME",
	Short: "Create a list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("NewList")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if _, err := a.NewList(args[0]); err != nil {
			return fmt.Errorf("creating list: %w", err)
		}
		fmt.Printf("Created list %q\n", args[0])
		return nil
	},
}

var listSelectCmd = &cobra.Command{
	Use:   "select [INDEX]",
	Short: "Select the list other commands work on",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("SelectList")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		var i int
		if len(args) == 1 {
			if i, err = parseIndex(args[0]); err != nil {
				return err
			}
		} else {
			picked, ok, err := pickList(a.Registry())
			if err != nil || !ok {
				return err
			}
			i = picked
		}

		l, err := a.SelectList(i)
		if err != nil {
			return fmt.Errorf("selecting list: %w", err)
		}
		fmt.Printf("Selected list %q\n", l.Name)
		return nil
	},
}

// pickList lets the user choose a list interactively. ok is false when the
// user aborts or there is nothing to choose from.
func pickList(registry *nbm.ListRegistry) (int, bool, error) {
	if registry.Len() == 0 {
		fmt.Println("There are no lists.")
		return 0, false, nil
	}

	lists := make([]*nbm.ResourceList, 0, registry.Len())
	for _, l := range registry.All() {
		lists = append(lists, l)
	}

	idx, err := fuzzyfinder.Find(
		lists,
		func(i int) string {
			return fmt.Sprintf("%s (%d elements)", lists[i].Name, lists[i].Len())
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			return lists[i].Report()
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("interactive selection failed: %w", err)
	}
	return idx, true, nil
}

var listRemoveCmd = &cobra.Command{
	Use:   "remove INDEX",
	Short: "Remove a list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("RemoveList")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		l, err := a.RemoveList(i)
		if err != nil {
			return fmt.Errorf("removing list: %w", err)
		}
		fmt.Printf("Removed list %q\n", l.Name)
		return nil
	},
}

var listCopyCmd = &cobra.Command{
	Use:   "copy INDEX",
	Short: "Duplicate a list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("CopyList")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		l, err := a.CopyList(i)
		if err != nil {
			return fmt.Errorf("copying list: %w", err)
		}
		fmt.Printf("Created list %q\n", l.Name)
		return nil
	},
}

var listRenameCmd = &cobra.Command{
	Use:   "rename INDEX NAME",
	Short: "Rename a list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("RenameList")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.RenameList(i, args[1]); err != nil {
			return fmt.Errorf("renaming list: %w", err)
		}
		fmt.Printf("Renamed list %d to %q\n", i, args[1])
		return nil
	},
}

var listLegacyCmd = &cobra.Command{
	Use:   "legacy",
	Short: "Import the single-list snapshot file, or write it with --save",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		save, _ := cmd.Flags().GetBool("save")

		a, err := newApp("LegacyList")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if save {
			path, err := a.SaveLegacy()
			if err != nil {
				return fmt.Errorf("saving list snapshot: %w", err)
			}
			fmt.Printf("Saved selected list to %s\n", path)
			return nil
		}

		l, err := a.ImportLegacy()
		if err != nil {
			return fmt.Errorf("importing list snapshot: %w", err)
		}
		fmt.Printf("Imported list %q with %d elements\n", l.Name, l.Len())
		return nil
	},
}

// add command
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a resource to the selected list",
}

var addFileCmd = &cobra.Command{
	Use:   "file ORIGIN [DESTINY]",
	Short: "Add a file",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("AddFile")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		destiny := ""
		if len(args) == 2 {
			destiny = args[1]
		}
		r, err := a.AddFile(args[0], destiny)
		if err != nil {
			return fmt.Errorf("adding file: %w", err)
		}
		fmt.Printf("Added %s -> %s\n", r.Origin(), r.Destiny())
		return nil
	},
}

var addDirCmd = &cobra.Command{
	Use:   "dir ORIGIN [DESTINY]",
	Short: "Add a directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		compress, _ := cmd.Flags().GetBool("compress")

		a, err := newApp("AddDir")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		destiny := ""
		if len(args) == 2 {
			destiny = args[1]
		}
		r, err := a.AddDir(args[0], destiny, compress)
		if err != nil {
			return fmt.Errorf("adding directory: %w", err)
		}
		fmt.Printf("Added %s -> %s\n", r.Origin(), r.Destiny())
		return nil
	},
}

// del command
var delCmd = &cobra.Command{
	Use:   "del INDEX",
	Short: "Remove a resource from the selected list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("Delete")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		r, err := a.Delete(i)
		if err != nil {
			return fmt.Errorf("deleting resource: %w", err)
		}
		fmt.Printf("Removed %s\n", r.Origin())
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the selected list",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("Show")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		l, err := a.Selected()
		if err != nil {
			return err
		}
		fmt.Printf("List %q\n\n%s\n", l.Name, l.Report())
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which resources need a backup",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		strict, _ := cmd.Flags().GetBool("strict")

		a, err := newApp("Status")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		seq, err := a.Status(strict)
		if err != nil {
			return err
		}

		i, pending := 0, 0
		for r, different := range seq {
			state := unchangedColor.Sprint("up to date")
			if different {
				state = copiedColor.Sprint("needs backup")
				pending++
			}
			fmt.Printf("[%d] %s %s\n", i, r.Name(), state)
			i++
		}
		if i == 0 {
			fmt.Println("The list of files is empty")
			return nil
		}
		fmt.Printf("\n%d of %d need a backup\n", pending, i)
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup [SPAN]",
	Short: "Back up the selected list, or the resources in SPAN (I or A:B)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		force, _ := cmd.Flags().GetBool("force")
		strict, _ := cmd.Flags().GetBool("strict")
		ignoreFailures, _ := cmd.Flags().GetBool("ignore-failures")

		span, err := parseSpan(args)
		if err != nil {
			return err
		}

		a, err := newApp("Backup")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		opts, err := a.CopyOptions(force, strict, ignoreFailures)
		if err != nil {
			return err
		}
		seq, err := a.Backup(span, opts)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		return printRun(cmd, span, seq)
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore [SPAN]",
	Short: "Restore the selected list, or the resources in SPAN, over their origins",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		force, _ := cmd.Flags().GetBool("force")
		yes, _ := cmd.Flags().GetBool("yes")

		span, err := parseSpan(args)
		if err != nil {
			return err
		}

		a, err := newApp("Restore")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if !yes {
			if !isInteractive() {
				return errors.New("restore overwrites origins; pass --yes to confirm")
			}
			if !confirm(cmd.OutOrStdout(), os.Stdin, "Restore over the origins?") {
				fmt.Println("Aborted.")
				return nil
			}
		}

		opts, err := a.CopyOptions(force, false, false)
		if err != nil {
			return err
		}
		seq, err := a.Restore(span, opts)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		return printRun(cmd, span, seq)
	},
}

// printRun prints the outcome of every resource as it completes and fails
// the command if any resource failed.
func printRun(cmd *cobra.Command, span nbm.Span, seq iter.Seq2[nbm.Result, nbm.Resource]) error {
	i, failed := span.Start, 0
	for res, r := range seq {
		printResult(cmd.OutOrStdout(), i, r, res)
		if !res.OK() {
			failed++
		}
		i++
	}
	if failed > 0 {
		return fmt.Errorf("%d resource(s) cannot be copied", failed)
	}
	return nil
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export PATH",
	Short: "Write the selected list to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("Export")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.Export(args[0]); err != nil {
			return fmt.Errorf("exporting list: %w", err)
		}
		fmt.Printf("Exported to %s\n", args[0])
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import PATH",
	Short: "Add a list from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("Import")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		l, err := a.Import(args[0])
		if err != nil {
			return fmt.Errorf("importing list: %w", err)
		}
		fmt.Printf("Imported list %q with %d elements\n", l.Name, l.Len())
		return nil
	},
}

// db commands
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the registry database",
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup PATH",
	Short: "Write a copy of the registry database to PATH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("DBBackup")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		from, err := a.BackupDatabase(args[0])
		if err != nil {
			return fmt.Errorf("backing up database: %w", err)
		}
		fmt.Printf("Copied %s to %s\n", from, args[0])
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// list subcommands
	listCmd.AddCommand(listShowCmd)
	listCmd.AddCommand(listNewCmd)
	listCmd.AddCommand(listSelectCmd)
	listCmd.AddCommand(listRemoveCmd)
	listCmd.AddCommand(listCopyCmd)
	listCmd.AddCommand(listRenameCmd)
	listCmd.AddCommand(listLegacyCmd)
	listLegacyCmd.Flags().Bool("save", false, "Write the selected list to the snapshot file instead")

	// db subcommands
	dbCmd.AddCommand(dbBackupCmd)

	// add subcommands
	addCmd.AddCommand(addFileCmd)
	addCmd.AddCommand(addDirCmd)
	addDirCmd.Flags().BoolP("compress", "z", false, "Store the backup as a zip archive")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(delCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolP("strict", "s", false, "Compare contents when modification times match")
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().BoolP("force", "f", false, "Copy even unchanged resources")
	backupCmd.Flags().BoolP("strict", "s", false, "Compare contents when modification times match")
	backupCmd.Flags().Bool("ignore-failures", false, "Keep going when a directory member fails")
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().BoolP("force", "f", false, "Copy even unchanged resources")
	restoreCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(dbCmd)
}
