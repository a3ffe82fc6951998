package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/medsched/medsched/internal/facade"
	"github.com/medsched/medsched/internal/repo"
	"github.com/medsched/medsched/internal/scheduler"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the schedule service until interrupted",
		Long: `Run the schedule service in the foreground.

The service opens the record store, runs one recompute pass
immediately, then keeps the derived flags fresh with an hourly pass
and an extra pass after every write. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts)
		},
	}
}

func runServe(cmd *cobra.Command, rootOpts *RootOptions) error {
	cfg, log, err := loadRuntime(rootOpts)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("closing store")
		}
	}()

	r := repo.New(st, log)
	defer r.Close()

	sched := scheduler.New(r.RecomputePass, log,
		scheduler.WithInterval(cfg.RecomputeInterval),
		scheduler.WithRetryDelay(cfg.RetryDelay),
	)

	// External writes through the facade nudge the scheduler so the
	// derived flags catch up promptly.
	fac := facade.New(st, log, facade.WithOnMutate(sched.Trigger))

	token, changes, err := fac.Bus().Subscribe(facade.PathPrescriptions)
	if err != nil {
		return err
	}
	defer fac.Bus().Unsubscribe(token)
	go func() {
		for change := range changes {
			log.Debug().Str("address", change.Address).Msg("records changed")
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched.Start(ctx)
	defer sched.Stop()

	log.Info().Str("store", cfg.StorePath).Msg("medsched serving")
	<-ctx.Done()
	log.Info().Msg("shutting down")

	return nil
}
