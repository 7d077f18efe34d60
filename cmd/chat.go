package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/agendabot/internal/agent"
)

func newChatCmd() *cobra.Command {
	var (
		sender     string
		businessID string
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Answer messages through the conversational agent",
		Long: `Send a customer message through the agent dispatch loop and print the
reply. Without a message argument, every line read from stdin is sent as
one message of the same conversation.

Requires OPENAI_API_KEY and ASSISTANT_ID (or an assistant configured on the
business).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg, slog.Default(), false)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			d, err := a.dispatcher()
			if err != nil {
				return err
			}

			if len(args) > 0 {
				return chatOnce(ctx, d, cmd.OutOrStdout(), agent.Inbound{
					Sender:     sender,
					BusinessID: businessID,
					Text:       strings.Join(args, " "),
				})
			}
			return chatLines(ctx, d, cmd.InOrStdin(), cmd.OutOrStdout(), sender, businessID)
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "", "Customer phone number the message comes from (required)")
	cmd.Flags().StringVar(&businessID, "business", "", "Business the message is routed to (default: BUSINESS_ID)")
	_ = cmd.MarkFlagRequired("sender")

	return cmd
}

// messageHandler is the part of agent.Dispatcher the chat command uses.
type messageHandler interface {
	HandleMessage(ctx context.Context, in agent.Inbound) (string, error)
}

// chatOnce prints the reply even when the run failed, since the reply is
// then the apology the customer would receive.
func chatOnce(ctx context.Context, h messageHandler, out io.Writer, in agent.Inbound) error {
	reply, err := h.HandleMessage(ctx, in)
	fmt.Fprintln(out, reply)
	return err
}

func chatLines(ctx context.Context, h messageHandler, in io.Reader, out io.Writer, sender, businessID string) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		reply, err := h.HandleMessage(ctx, agent.Inbound{Sender: sender, BusinessID: businessID, Text: text})
		if err != nil {
			slog.Warn("message not answered", "error", err)
		}
		fmt.Fprintln(out, reply)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}
