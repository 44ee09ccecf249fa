package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"servicefinder/config"
	"servicefinder/models"
	"servicefinder/services/dialogue"
	"servicefinder/utils"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Chat with the assistant in the terminal. Conversation state is kept in memory;
searches go to the configured SEARCH_BACKEND.

Commands:
  /more    show more results
  /reset   start over
  /quit    exit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.AppConfig
		logger := utils.GetLogger()

		searcher, closeSearcher, err := newSearcher(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer closeSearcher()

		store := dialogue.NewMemoryStore()
		opts := engineOptions(cfg, logger)
		opts.Store = store
		opts.Turns = store
		opts.Searcher = searcher
		opts.Geocoder = newGeocoder(cfg, logger)
		opts.Observer = phasePrinter(cmd.OutOrStdout())
		engine := dialogue.NewEngine(opts)

		return runChat(cmd.Context(), engine, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

type chatEngine interface {
	Process(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	LoadMore(ctx context.Context, conversationID string) (*models.ChatResponse, error)
	Reset(ctx context.Context, conversationID string) (*models.ChatResponse, error)
}

func runChat(ctx context.Context, engine chatEngine, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	id := uuid.New().String()
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		var (
			resp *models.ChatResponse
			err  error
		)
		switch line {
		case "":
			fmt.Fprint(out, "> ")
			continue
		case "/quit", "/exit":
			return nil
		case "/more":
			resp, err = engine.LoadMore(ctx, id)
		case "/reset":
			resp, err = engine.Reset(ctx, id)
		default:
			resp, err = engine.Process(ctx, models.ChatRequest{ConversationID: id, Text: line})
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n> ", err)
			continue
		}
		printResponse(out, resp)
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

// phasePrinter shows progress on its own lines while a turn is processed. The engine
// serialises phases of one turn, and the REPL runs one turn at a time.
func phasePrinter(out io.Writer) dialogue.PhaseObserver {
	return dialogue.PhaseObserverFunc(func(_ string, phase dialogue.Phase) {
		if phase == dialogue.PhaseDone {
			return
		}
		fmt.Fprintf(out, "  (%s...)\n", phase)
	})
}

func printResponse(out io.Writer, resp *models.ChatResponse) {
	fmt.Fprintln(out, resp.ReplyText)
	for i, p := range resp.Providers {
		fmt.Fprintf(out, "  %d. %s", i+1, p.Name)
		if p.Phone != "" {
			fmt.Fprintf(out, " (%s)", p.Phone)
		}
		fmt.Fprintln(out)
		if p.Address != "" {
			fmt.Fprintf(out, "     %s\n", p.Address)
		}
	}
	if len(resp.QuickReplies) > 0 {
		labels := make([]string, 0, len(resp.QuickReplies))
		for _, q := range resp.QuickReplies {
			labels = append(labels, q.Label)
		}
		fmt.Fprintf(out, "  [%s]\n", strings.Join(labels, "] ["))
	}
}

