package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

const defaultReplPrompt = "you> "

type chatChannel interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, text string) error
	WriteMeta(ctx context.Context, text string) error
}

type readlineChatChannel struct {
	rl  *readline.Instance
	out io.Writer
}

func newReadlineChatChannel(in io.Reader, out io.Writer, historyPath string) (*readlineChatChannel, error) {
	stdin, ok := in.(io.ReadCloser)
	if !ok {
		return nil, fmt.Errorf("stdin is not read-closer")
	}
	inFile, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(inFile.Fd())) {
		return nil, fmt.Errorf("stdin is not terminal")
	}
	outFile, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(outFile.Fd())) {
		return nil, fmt.Errorf("stdout is not terminal")
	}

	if historyPath == "" {
		historyPath = filepath.Join(os.TempDir(), ".docbt_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          defaultReplPrompt,
		HistoryFile:     historyPath,
		HistoryLimit:    200,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           stdin,
		Stdout:          out,
		Stderr:          out,
	})
	if err != nil {
		return nil, err
	}
	return &readlineChatChannel{rl: rl, out: out}, nil
}

func (c *readlineChatChannel) Read(_ context.Context) (string, error) {
	line, err := c.rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt || err == io.EOF {
			return "", io.EOF
		}
		return "", err
	}
	return line, nil
}

func (c *readlineChatChannel) Write(_ context.Context, text string) error {
	_, err := fmt.Fprintf(c.out, "assistant> %s\n\n", text)
	return err
}

func (c *readlineChatChannel) WriteMeta(_ context.Context, text string) error {
	_, err := fmt.Fprintf(c.out, "%s\n", text)
	return err
}

func (c *readlineChatChannel) Close() error {
	return c.rl.Close()
}

type stdioChatChannel struct {
	in     *bufio.Reader
	out    io.Writer
	prompt string
}

func newStdioChatChannel(in *bufio.Reader, out io.Writer) *stdioChatChannel {
	return &stdioChatChannel{
		in:     in,
		out:    out,
		prompt: defaultReplPrompt,
	}
}

func (c *stdioChatChannel) Read(_ context.Context) (string, error) {
	if _, err := fmt.Fprint(c.out, c.prompt); err != nil {
		return "", err
	}
	line, err := c.in.ReadString('\n')
	if err != nil {
		if len(line) > 0 {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

func (c *stdioChatChannel) Write(_ context.Context, text string) error {
	_, err := fmt.Fprintf(c.out, "assistant> %s\n\n", text)
	return err
}

func (c *stdioChatChannel) WriteMeta(_ context.Context, text string) error {
	_, err := fmt.Fprintf(c.out, "%s\n", text)
	return err
}

func runChatREPL(ctx context.Context, runner *chatRunner, in io.Reader, fallbackReader *bufio.Reader, out io.Writer) error {
	var channel chatChannel
	readlineChannel, err := newReadlineChatChannel(in, out, runner.cfg.HistoryPath())
	if err == nil {
		channel = readlineChannel
	}
	if channel == nil {
		channel = newStdioChatChannel(fallbackReader, out)
	}
	if closer, ok := any(channel).(io.Closer); ok {
		defer closer.Close()
	}

	return runChatLoop(ctx, runner, channel)
}

func runChatLoop(ctx context.Context, runner *chatRunner, channel chatChannel) error {
	if err := channel.WriteMeta(ctx, "Interactive mode. Type /quit or /exit to stop, /reset to clear history."); err != nil {
		return err
	}

	for {
		raw, err := channel.Read(ctx)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		input := strings.TrimSpace(raw)
		if input == "" {
			continue
		}
		switch strings.ToLower(input) {
		case "/quit", "quit", "/exit", "exit":
			return nil
		case "/reset":
			runner.Reset()
			if err := channel.WriteMeta(ctx, "History cleared."); err != nil {
				return err
			}
			continue
		}

		resp, err := runner.Send(ctx, input)
		if err != nil {
			if writeErr := channel.WriteMeta(ctx, fmt.Sprintf("error: %v", err)); writeErr != nil {
				return writeErr
			}
			continue
		}
		if err := channel.Write(ctx, resp); err != nil {
			return err
		}
	}
}
