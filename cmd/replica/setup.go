package replica

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/edgeflare/replica/pkg/notify"
	"github.com/edgeflare/replica/pkg/setup"
	"github.com/spf13/cobra"
)

var (
	teardown   bool
	sourceIn   = setup.DefaultSource()
	sinkIn     = setup.DefaultSink()
	assignAcct int
	assignTrgs []string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure the replication topology",
	Long:  `Creates or tears down the source, the targets tables and sinks of the topology, and assigns database targets to accounts`,
}

var setupSourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Create or tear down the source schema, table and connector",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd, func(ctx context.Context, svc *setup.Service) (*setup.Report, error) {
			if teardown {
				return svc.TeardownSource(ctx)
			}
			return svc.SetupSource(ctx, sourceIn)
		})
	},
}

var setupTargetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Create or tear down the account targets tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd, func(ctx context.Context, svc *setup.Service) (*setup.Report, error) {
			if teardown {
				return svc.TeardownTargets(ctx)
			}
			return svc.SetupTargets(ctx)
		})
	},
}

var setupSinkCmd = &cobra.Command{
	Use:   "sink",
	Short: "Create or tear down a sink table and connector",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd, func(ctx context.Context, svc *setup.Service) (*setup.Report, error) {
			if teardown {
				return svc.TeardownSink(ctx, sinkIn.Hostname, sinkIn.Name, sinkIn.Table)
			}
			return svc.SetupSink(ctx, sinkIn)
		})
	},
}

var setupAssignCmd = &cobra.Command{
	Use:     "assign",
	Short:   "Assign database targets to an account",
	Example: `  replica setup assign --account 1 --target postgres2/sink --target postgres3/sink`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd, func(ctx context.Context, svc *setup.Service) (*setup.Report, error) {
			return svc.AssignTargets(ctx, setup.TargetAssignment{AccountID: assignAcct, Targets: assignTrgs})
		})
	},
}

func init() {
	setupCmd.PersistentFlags().BoolVar(&teardown, "teardown", false, "delete instead of create")

	f := setupSourceCmd.Flags()
	f.StringVar(&sourceIn.Hostname, "db-hostname", sourceIn.Hostname, "source database host")
	f.IntVar(&sourceIn.Port, "db-port", sourceIn.Port, "source database port")
	f.StringVar(&sourceIn.Name, "db-name", sourceIn.Name, "source database name")
	f.StringVar(&sourceIn.User, "db-user", sourceIn.User, "source database user")
	f.StringVar(&sourceIn.Password, "db-password", "", "source database password")
	f.IntVar(&sourceIn.PollInterval, "poll-interval", sourceIn.PollInterval, "connector poll interval in milliseconds")

	f = setupSinkCmd.Flags()
	f.StringVar(&sinkIn.Hostname, "db-hostname", sinkIn.Hostname, "sink database host")
	f.IntVar(&sinkIn.Port, "db-port", sinkIn.Port, "sink database port")
	f.StringVar(&sinkIn.Name, "db-name", sinkIn.Name, "sink database name")
	f.StringVar(&sinkIn.Table, "db-table", sinkIn.Table, "sink table")
	f.StringVar(&sinkIn.User, "db-user", sinkIn.User, "sink database user")
	f.StringVar(&sinkIn.Password, "db-password", "", "sink database password")

	f = setupAssignCmd.Flags()
	f.IntVar(&assignAcct, "account", 0, "account id")
	f.StringArrayVar(&assignTrgs, "target", nil, "database target as host/db, repeatable")
	setupAssignCmd.MarkFlagRequired("account")

	setupCmd.AddCommand(setupSourceCmd, setupTargetsCmd, setupSinkCmd, setupAssignCmd)
}

func runSetup(cmd *cobra.Command, op func(context.Context, *setup.Service) (*setup.Report, error)) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	sinks, err := notify.NewMulti(cfg.Notify, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize notification sinks: %w", err)
	}
	defer sinks.Close()

	printer := notify.Func(func(_ context.Context, n notify.Notification) error {
		_, err := fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s: %s\n", n.Level, n.Title, n.Body)
		return err
	})
	notifier := append(notify.Multi{printer}, sinks...)

	report, err := op(cmd.Context(), newService(logger, notifier))
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	return err
}

func printReport(w io.Writer, r *setup.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", r.Operation)
	for _, s := range r.Steps {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", s.Outcome, s.Kind, s.Resource, s.Error)
	}
	tw.Flush()
}
