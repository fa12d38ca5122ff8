package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/teller/internal/resolver"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Answer customer queries interactively",
	Long: `Start a read-eval-print loop that resolves each query through the
tier chain and prints the answer. Type "exit" to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		printStep("Loaded %d intents, %d knowledge documents", p.intentCount, p.knowledgeCount)
		return runChatLoop(ctx, p.resolver, os.Stdin, os.Stdout)
	},
}

// queryResolver is the part of the resolver the chat loop needs.
type queryResolver interface {
	Resolve(ctx context.Context, query string) resolver.Resolution
}

// runChatLoop reads queries line by line until EOF or an "exit" command.
// Blank lines re-prompt without resolving.
func runChatLoop(ctx context.Context, r queryResolver, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Enter your query: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.EqualFold(query, "exit") {
			return nil
		}

		res := r.Resolve(ctx, query)
		fmt.Fprintf(out, "Response: %s\n", res.Answer)
	}
}
