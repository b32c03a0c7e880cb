// Package chat provides the interactive terminal session.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/campushelp/faq-bot/internal/pipeline"
	"github.com/campushelp/faq-bot/internal/pkg/logger"
)

// Querier answers a single question.
type Querier interface {
	Query(ctx context.Context, question string, returnSources bool) (pipeline.QueryResult, error)
}

const banner = "🎓 University FAQ RAG Chatbot"

const helpText = `
🤖 Bot: Example questions:
   • When do admissions open?
   • What scholarships are available?
   • How do I apply for hostel?
   • What is the fee structure?
`

// Session is an interactive question loop over a bot.
type Session struct {
	bot Querier
	in  io.Reader
	out io.Writer
	log *logger.Logger
}

// New creates a chat session reading from in and writing to out.
func New(b Querier, in io.Reader, out io.Writer, log *logger.Logger) *Session {
	return &Session{
		bot: b,
		in:  in,
		out: out,
		log: log,
	}
}

// Run runs the session until the user exits, input ends, or the
// context is cancelled.
func (s *Session) Run(ctx context.Context) error {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(s.out, line)
	fmt.Fprintln(s.out, centered(banner, 60))
	fmt.Fprintln(s.out, line)
	fmt.Fprintln(s.out, "\n🤖 Bot: Hello! Ask me about university admissions, fees, etc.")
	fmt.Fprintln(s.out, "        Type 'exit' to quit or 'help' for examples.")
	fmt.Fprintln(s.out)

	scanner := bufio.NewScanner(s.in)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fmt.Fprint(s.out, "👤 You: ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "exit", "quit", "bye":
			fmt.Fprintln(s.out, "\n🤖 Bot: Goodbye! 👋")
			return nil
		case "help":
			fmt.Fprint(s.out, helpText)
			continue
		}

		result, err := s.bot.Query(ctx, input, true)
		if err != nil {
			s.log.WithError(err).Debug("Query failed")
			fmt.Fprintf(s.out, "\n🤖 Bot: Error: %v\n\n", err)
			continue
		}

		fmt.Fprintf(s.out, "\n🤖 Bot: [%s]\n", result.Response.Intent)
		fmt.Fprintf(s.out, "       %s\n\n", result.Response.Answer)
	}
}

// centered pads s to the middle of a field of the given width.
func centered(s string, width int) string {
	pad := (width - len([]rune(s))) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}
