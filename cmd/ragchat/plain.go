package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"ragchat/internal/chat"
	"ragchat/internal/completion"
	"ragchat/internal/domain"
)

// runPlain reads one question per line until EOF or an exit keyword.
// A failed turn is reported and the loop continues.
func runPlain(ctx context.Context, s *chat.Session, in io.Reader, out io.Writer, stream bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if chat.IsExit(text) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := s.Draft(text, domain.RoleUser)
		fmt.Fprint(out, "Assistant: ")
		var err error
		if stream {
			err = streamTurn(ctx, s, msg, out)
		} else {
			var resp *completion.Response
			resp, err = s.Send(ctx, msg, s.Generation())
			if err == nil {
				fmt.Fprint(out, resp.Content)
			}
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v", err)
		} else if paths := chat.SourcePaths(s.Retrieved()); len(paths) > 0 {
			fmt.Fprintf(out, "\nSources: %s", strings.Join(paths, ", "))
		}
		fmt.Fprintln(out)
	}
}

func streamTurn(ctx context.Context, s *chat.Session, msg domain.Message, out io.Writer) error {
	st, err := s.Stream(ctx, msg, s.Generation())
	if err != nil {
		return err
	}
	content, err := completion.Collect(st, func(d completion.Delta) error {
		_, werr := io.WriteString(out, d.Content)
		return werr
	})
	if content != "" {
		s.Record(ctx, domain.Message{Role: domain.RoleAssistant, Content: content})
	}
	return err
}
