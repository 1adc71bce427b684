package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"restaurant-sync/internal/common/db"
	"restaurant-sync/internal/common/httpx"
	"restaurant-sync/internal/common/logger"
	"restaurant-sync/internal/common/mq"
	"restaurant-sync/internal/server/handlers"
	"restaurant-sync/internal/server/repository"
	"restaurant-sync/internal/server/service"
)

// NewServeCommand creates the serve command, which runs the order API.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "serve",
		Short:         "Run the order API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	lg := logger.New("order-api")
	ctx := cmd.Context()

	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer conn.Close()

	broker, err := mq.Dial(cfg.Rabbit)
	if err != nil {
		return fmt.Errorf("rabbitmq: %w", err)
	}
	defer broker.Close()

	pub, err := service.NewEventPublisher(broker)
	if err != nil {
		return fmt.Errorf("rabbitmq: %w", err)
	}

	orders := service.NewOrderService(
		repository.NewOrderRepository(conn),
		repository.NewProductRepository(conn),
		pub,
		lg,
	)
	products := service.NewProductService(repository.NewProductRepository(conn), lg)

	h := handlers.New(orders, products, lg)
	srv := httpx.New(cfg.HTTP.Addr, h.Router())

	lg.Info("service_started", map[string]any{"addr": cfg.HTTP.Addr})
	return srv.Run(ctx)
}
