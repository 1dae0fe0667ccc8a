package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/planora/planora/config"
	"github.com/planora/planora/internal/conversation"
	"github.com/planora/planora/internal/operator"
	"github.com/planora/planora/internal/session"
)

func newPlanCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Interactive planning session at the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(*cfgPath)
			return runInteractive(cmd.Context(), cfg)
		},
	}
}

func runInteractive(ctx context.Context, cfg *config.Config) error {
	console, err := operator.NewConsole()
	if err != nil {
		return err
	}
	defer console.Close()

	r, err := buildRunner(ctx, cfg, console, nil)
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{Prompt: "plan> "})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println("Event planning assistant. Describe an event to plan or a message to send, or type \"quit\" to leave.")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			fmt.Println("Goodbye!")
			return nil
		}
		if err != nil {
			return err
		}
		request := strings.TrimSpace(line)
		if request == "" {
			continue
		}
		switch strings.ToLower(request) {
		case "quit", "exit", "bye", "q":
			fmt.Println("Goodbye!")
			return nil
		}

		st, err := r.Start(ctx, request)
		if err != nil {
			fmt.Printf("Session failed: %v\n", err)
			continue
		}
		printOutcome(st)
	}
}

func printOutcome(st *session.State) {
	switch st.Status {
	case session.StatusDone:
		if st.Plan.SchedulingDone() {
			fmt.Println()
			fmt.Println(st.Plan.Digest())
		}
		if turn, ok := st.Conversation.LastOfKind(conversation.KindAgentOutput); ok {
			fmt.Println(turn.Text)
		}
	case session.StatusCancelled:
		fmt.Println("Session cancelled. No invitations were sent.")
	case session.StatusFailed:
		fmt.Printf("Session ended: %s\n", st.FailureReason)
	}
}
