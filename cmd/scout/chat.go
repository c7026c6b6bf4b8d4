package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"codescout/internal/ux"
)

// runChat drives the interactive session: each line becomes a task, and
// askUser prompts (plan approvals included) are answered inline.
func runChat(ctx context.Context, app *app) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "scout> ",
		HistoryFile:     historyPath(),
		InterruptPrompt: "^C",
	})
	if err != nil {
		return fmt.Errorf("failed to start terminal: %w", err)
	}
	defer rl.Close()

	renderer := ux.NewRenderer(os.Stdout)
	fmt.Println("scout interactive session. Type a goal, or 'exit' to quit.")

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		goal := strings.TrimSpace(line)
		switch goal {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		app.loop.RunTask(ctx, goal, nil,
			renderer.Update,
			func(taskID, promptID, question string) {
				answer := promptOnTerminal(renderer, question)
				app.loop.Correlator().Resolve(promptID, answer)
			})
	}
}

// promptOnTerminal blocks on stdin for an askUser answer. Runs on the
// task's goroutine while the loop is already waiting on the correlator,
// so a plain blocking read is fine here.
func promptOnTerminal(renderer *ux.Renderer, question string) string {
	renderer.Question(question)
	fmt.Print("> ")
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(answer)
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.scout_history"
}
