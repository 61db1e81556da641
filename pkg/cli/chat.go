package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdChat() *cli.Command {
	var query string
	var filter string
	var k int
	var rt runtimeConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Question about the indexed records",
			Required:    true,
			Destination: &query,
		},
		&cli.StringFlag{
			Name:        "filter",
			Usage:       `Metadata filter, e.g. '{"patient_name":"Juan Pérez","date":{"$gte":"2025-07-01"}}'`,
			Destination: &filter,
		},
		&cli.IntFlag{
			Name:        "k",
			Usage:       "Chunks to retrieve. 0 uses the configured default",
			Destination: &k,
		},
	}
	flags = append(flags, rt.Flags()...)

	return &cli.Command{
		Name:    "chat",
		Aliases: []string{"c"},
		Usage:   "Ask a question answered from the indexed records",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			f, err := model.ParseFilter(json.RawMessage(filter))
			if err != nil {
				return err
			}

			uc, cleanup, err := rt.build(ctx, c)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := uc.Chat.Chat(ctx, usecase.ChatInput{
				Query:  query,
				Filter: f,
				K:      k,
			})
			if err != nil {
				return err
			}

			printChatResult(result)
			return nil
		},
	}
}

func printChatResult(result *model.ChatResult) {
	if result.Status == model.ChatStatusNoMatch {
		_, _ = color.New(color.FgYellow).Println(result.Answer)
		return
	}

	fmt.Println(result.Answer)
	fmt.Println()
	_, _ = color.New(color.FgCyan, color.Bold).Println("Fuentes:")
	for _, id := range result.Citations {
		_, _ = color.New(color.FgGreen).Printf("  - %s\n", id)
	}
}
