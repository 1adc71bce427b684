package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"restaurant-sync/internal/apiclient"
	"restaurant-sync/internal/common/logger"
	"restaurant-sync/internal/common/mq"
	"restaurant-sync/internal/dashboard/ingress"
	"restaurant-sync/internal/dashboard/notify"
	"restaurant-sync/internal/dashboard/project"
	"restaurant-sync/internal/dashboard/session"
	"restaurant-sync/internal/domain"
)

// DashboardOptions holds flags for the dashboard command.
type DashboardOptions struct {
	*RootOptions
	Role string
}

// NewDashboardCommand creates the dashboard command, a terminal rendition of
// one role-scoped viewing session.
func NewDashboardCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DashboardOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "dashboard",
		Short:         "Run a role-scoped dashboard session",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Role, "role", "", "viewing role: waiter | kitchen | cashier | admin (overrides config)")

	return cmd
}

func runDashboard(opts *DashboardOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	role := cfg.Dashboard.Role
	if opts.Role != "" {
		role = domain.Role(opts.Role)
	}
	if !role.Known() {
		return fmt.Errorf("unknown role %q", role)
	}
	lg := logger.New("dashboard")
	ctx := cmd.Context()

	broker, err := mq.Dial(cfg.Rabbit)
	if err != nil {
		return fmt.Errorf("rabbitmq: %w", err)
	}
	defer broker.Close()

	in := ingress.New(broker, lg)
	if err := in.Start(uuid.NewString()); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer in.Stop()

	toast := &notify.TerminalToaster{W: os.Stdout}
	notifier := notify.New(role, notify.Config{
		Sounds: cfg.Dashboard.Sounds,
		Volume: cfg.Dashboard.Volume,
	}, &notify.TerminalAudio{W: os.Stdout}, toast, lg)

	sess := session.New(session.Config{
		Role:                role,
		PollInterval:        cfg.Dashboard.PollInterval(),
		ProductPollInterval: cfg.Dashboard.ProductPollInterval(),
	}, apiclient.New(cfg.Dashboard.APIBase, role), in.Events(), notifier, toast, lg)

	lg.Info("session_started", map[string]any{"role": string(role)})
	go renderLoop(ctx, sess, role)
	sess.Run(ctx)
	return nil
}

// renderLoop redraws the board once a second. The session owns all state;
// it is only read here through the view accessors.
func renderLoop(ctx context.Context, sess *session.Session, role domain.Role) {
	filter := project.FilterActive
	if role == domain.RoleAdmin {
		filter = project.FilterAll
	}
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			render(sess, filter)
		case <-sess.Novelty():
			render(sess, filter)
		}
	}
}

func render(sess *session.Session, filter project.Filter) {
	orders := sess.Orders(filter, project.OldestFirst)
	counts := sess.Counts()
	var b strings.Builder
	fmt.Fprintf(&b, "-- %d new / %d in kitchen / %d ready / %d active --\n",
		counts.ByStatus[domain.StatusNew], counts.ByStatus[domain.StatusInKitchen],
		counts.ByStatus[domain.StatusReady], counts.Active)
	for _, o := range orders {
		fmt.Fprintf(&b, "%-16s table %-3d %-10s %6.2f\n", o.Number, o.TableNumber, o.Status, o.Total())
	}
	os.Stdout.WriteString(b.String())
}
