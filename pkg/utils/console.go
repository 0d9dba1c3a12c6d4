package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// AskFor prompts on out until a line read from in passes validate. It returns
// ctx.Err() on cancellation and io.EOF when the input ends.
func AskFor(ctx context.Context, in io.Reader, out io.Writer, prompt string, validate func(string) error) (string, error) {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			scanErr <- err
			return
		}
		scanErr <- io.EOF
	}()

	for {
		fmt.Fprint(out, prompt)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case err := <-scanErr:
			return "", err
		case line := <-lines:
			if err := validate(line); err != nil {
				fmt.Fprintf(out, "Invalid input: %v. Please enter again.\n", err)
				continue
			}
			return line, nil
		}
	}
}
