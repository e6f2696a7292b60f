// Package main provides the flowengine-audit CLI, which inspects stored
// automations and reports flow validation and resolution problems.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/openhaus/flowengine/pkg/cmd"
	"github.com/openhaus/flowengine/pkg/flow"
	"github.com/openhaus/flowengine/pkg/log"
	"github.com/openhaus/flowengine/pkg/services"
)

var ErrInvalidAutomations = errors.New("invalid automations found")

func main() {
	command := &cli.Command{
		Name:                  "flowengine-audit",
		Usage:                 "Audit stored automations",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewValidateCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate flow graphs and execution paths for stored automations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
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

			logger := log.WithModule("audit")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			automationService := services.NewAutomation(persistence, services.AllowAllDevices(), logger)

			result, err := automationService.List(ctx, services.ListAutomationsRequest{
				Limit:     100,
				SortBy:    "created_at",
				SortOrder: "desc",
			})
			if err != nil {
				return fmt.Errorf("failed to fetch automations: %w", err)
			}

			automations := result.Automations

			logger.InfoContext(ctx, "Validating automation flows", "automations", len(automations))

			_, _ = fmt.Fprintln(os.Stdout, "Automation Flow Validation Results:")
			_, _ = fmt.Fprintln(os.Stdout, "===================================")

			valid := 0
			invalid := 0

			for _, automation := range automations {
				_, _ = fmt.Fprintf(os.Stdout, "\nAutomation: %s (%s)\n", automation.Name, automation.ID)

				if automation.Flow == nil {
					_, _ = fmt.Fprintf(os.Stdout, "  ❌ INVALID: no flow metadata\n")
					invalid++

					continue
				}

				ok, violations := flow.Validate(automation.Flow.Nodes, automation.Flow.Edges)
				if !ok {
					for _, violation := range violations {
						_, _ = fmt.Fprintf(os.Stdout, "  ❌ INVALID: %s\n", violation)
					}

					invalid++

					continue
				}

				paths, err := flow.Resolve(
					automation.Flow.Nodes,
					automation.Flow.Edges,
					automation.Triggers,
					automation.Conditions,
					automation.Actions,
				)
				if err != nil {
					_, _ = fmt.Fprintf(os.Stdout, "  ❌ INVALID: %v\n", err)
					invalid++

					continue
				}

				_, _ = fmt.Fprintf(os.Stdout, "  ✅ VALID (%d execution paths)\n", len(paths))
				valid++
			}

			_, _ = fmt.Fprintf(os.Stdout, "\nValidation Summary:\n")
			_, _ = fmt.Fprintf(os.Stdout, "  Total automations: %d\n", valid+invalid)
			_, _ = fmt.Fprintf(os.Stdout, "  Valid automations: %d\n", valid)
			_, _ = fmt.Fprintf(os.Stdout, "  Invalid automations: %d\n", invalid)

			if invalid > 0 {
				return fmt.Errorf("%w: %d", ErrInvalidAutomations, invalid)
			}

			_, _ = fmt.Fprintln(os.Stdout, "All automation flows are valid! ✅")

			return nil
		},
	}
}
