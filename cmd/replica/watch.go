package replica

import (
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/edgeflare/replica/pkg/broadcast"
	"github.com/edgeflare/replica/pkg/kafka"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchAcct    int
	watchTargets []string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the sync status of an account",
	Long: `Reads the status topic and prints the synchronization state of every database target of
an account as status messages arrive`,
	Example: `  replica watch --account 1`,
	RunE:    runWatch,
}

func init() {
	watchCmd.Flags().IntVarP(&watchAcct, "account", "a", 0, "account id")
	watchCmd.Flags().StringArrayVar(&watchTargets, "target", nil, "known database target as host/db (default: looked up in ksqlDB)")
	watchCmd.MarkFlagRequired("account")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	targets := watchTargets
	if len(targets) == 0 {
		targets, err = newKSQLClient(logger).Targets(ctx, watchAcct)
		if err != nil {
			logger.Warn("could not look up account targets", zap.Error(err))
		}
	}

	acct := strconv.Itoa(watchAcct)
	hub := broadcast.NewHub(logger)
	events, cancel := hub.Subscribe(acct)
	defer cancel()

	// a private group so every watcher sees every message
	group, err := kafka.NewClient(&cfg.Kafka, logger).ConsumerGroup(cfg.Broadcast.Group + "_watch_" + uuid.NewString())
	if err != nil {
		return err
	}
	defer group.Close()

	consumer := broadcast.NewConsumer(hub, broadcast.WithTopic(cfg.Broadcast.Topic), broadcast.WithLogger(logger))
	errChan := make(chan error, 1)
	go func() { errChan <- consumer.Run(ctx, group) }()

	status := broadcast.NewAccountStatus(acct, targets)
	out := cmd.OutOrStdout()
	printStatus(out, status)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errChan:
			return err
		case ev := <-events:
			added := status.Apply(broadcast.StatusMessage{Label: ev.Target, Outcome: ev.Outcome, Version: ev.Version, UpdatedOn: ev.UpdatedOn})
			fmt.Fprintf(out, "%s %s outcome=%d\n", time.Now().Format(time.TimeOnly), ev.Target, ev.Outcome)
			if added {
				fmt.Fprintf(out, "  new target %s\n", ev.Target)
			}
			printStatus(out, status)
			if status.Synchronized() {
				fmt.Fprintf(out, "  account %s synchronized\n", status.ID)
			}
		}
	}
}

func printStatus(w io.Writer, s *broadcast.AccountStatus) {
	for _, t := range s.Targets {
		state := "synchronizing"
		if t.Synchronized {
			state = "synchronized"
		}
		fmt.Fprintf(w, "  account %s  %-32s %s\n", s.ID, t.Name, state)
	}
}
