package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"

	"github.com/leadfuse/leadfuse/pkg/agent"
	"github.com/leadfuse/leadfuse/pkg/cmd"
	"github.com/leadfuse/leadfuse/pkg/dispatcher"
	"github.com/leadfuse/leadfuse/pkg/expression"
	"github.com/leadfuse/leadfuse/pkg/leads"
	"github.com/leadfuse/leadfuse/pkg/log"
	"github.com/leadfuse/leadfuse/pkg/otelhelper"
	"github.com/leadfuse/leadfuse/pkg/protocol"
	"github.com/leadfuse/leadfuse/pkg/reputation"
)

func main() {
	command := &cli.Command{
		Name:                  "leadfuse-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to run workflow executions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the reputation gate (in-memory gate when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "leads-api-url",
				Usage:   "Base URL of the CRM lead API",
				Sources: cli.EnvVars("LEADS_API_URL"),
			},
			&cli.StringFlag{
				Name:    "leads-api-key",
				Usage:   "API key for the CRM lead API",
				Sources: cli.EnvVars("LEADS_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "agent-api-url",
				Usage:   "Base URL of the AI agent service",
				Sources: cli.EnvVars("AGENT_API_URL"),
			},
			&cli.StringFlag{
				Name:    "agent-api-key",
				Usage:   "API key for the AI agent service",
				Sources: cli.EnvVars("AGENT_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("leadfuse-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing worker")

			tracerProvider, err := otelhelper.NewTracerProvider(ctx, "leadfuse-worker")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}

			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "leadfuse-worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			var gate protocol.ReputationGate = reputation.NewMemoryGate()

			if redisURL := command.String("redis-url"); redisURL != "" {
				opts, err := redis.ParseURL(redisURL)
				if err != nil {
					return err
				}

				gate = reputation.NewRedisGate(redis.NewClient(opts), logger)
			}

			var leadStore protocol.LeadStore = leads.NewMemoryLeadStore()
			if url := command.String("leads-api-url"); url != "" {
				leadStore = leads.NewHTTPLeadStore(url, command.String("leads-api-key"))
			}

			var agentClient protocol.AgentClient
			if url := command.String("agent-api-url"); url != "" {
				agentClient = agent.NewHTTPAgentClient(url, command.String("agent-api-key"))
			}

			busDispatcher := dispatcher.NewBusDispatcher(eventBus, logger)
			expressions := expression.NewEngine()

			registry := cmd.NewRegistry(logger, expressions, cmd.Collaborators{
				Leads:      leadStore,
				Dispatcher: busDispatcher,
				Tasks:      busDispatcher,
				Webhooks:   dispatcher.NewHTTPWebhookCaller(logger),
				Agent:      agentClient,
				Gate:       gate,
			})

			worker := NewWorkerManager(workerID, persistence, eventBus, registry, leadStore, expressions, logger)

			return worker.Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
