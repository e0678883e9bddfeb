package main

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/Awhitter/spanish1/internal/session"
)

// Practice commands typed instead of an answer
const (
	practiceHint  = ":pista"
	practiceSkip  = ":saltar"
	practiceReset = ":reiniciar"
	practiceQuit  = ":salir"
)

// cmdPractice runs a quiz session in the terminal
func cmdPractice(args []string) error {
	module := ""
	if len(args) > 0 {
		module = args[0]
	}

	c := newClient()
	if err := c.requireDaemon(); err != nil {
		return err
	}

	var snap session.Snapshot
	if err := c.do("POST", "/v1/sessions", map[string]string{"module": module}, &snap); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer func() {
		_ = c.do("DELETE", "/v1/sessions/"+url.PathEscape(snap.ID), nil, nil)
	}()

	fmt.Printf("Comandos: %s, %s, %s, %s\n\n", practiceHint, practiceSkip, practiceReset, practiceQuit)
	return practiceLoop(c, snap, os.Stdin, os.Stdout)
}

// practiceLoop reads answers from in until the learner quits or in ends
func practiceLoop(c *apiClient, snap session.Snapshot, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	base := "/v1/sessions/" + url.PathEscape(snap.ID)
	printSnapshot(out, snap, true)

	announced := false
	for {
		resolved := snap.State == session.StateCorrect || snap.State == session.StateIncorrect
		switch {
		case snap.State == session.StateError:
			fmt.Fprint(out, "Pulsa Enter para reintentar: ")
		case snap.State == session.StateExhausted:
			return nil
		case snap.Complete:
			if !announced {
				printCompletion(out, snap)
				announced = true
			}
			fmt.Fprintf(out, "Escribe %s para empezar de nuevo o %s para terminar: ", practiceReset, practiceQuit)
		case resolved:
			fmt.Fprint(out, "Pulsa Enter para continuar: ")
		default:
			fmt.Fprint(out, "> ")
		}

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		var (
			path string
			body any
		)
		switch {
		case line == practiceQuit:
			printSummary(out, snap)
			return nil
		case snap.Complete && line != practiceReset:
			continue
		case line == practiceHint:
			path = base + "/hint"
		case line == practiceSkip:
			path = base + "/skip"
		case line == practiceReset:
			path = base + "/reset"
		case snap.State == session.StateError:
			path = base + "/reload"
		case resolved:
			path = base + "/next"
		default:
			path = base + "/answer"
			body = map[string]string{"answer": line}
		}

		prev := snap
		if err := c.do("POST", path, body, &snap); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			snap = prev
			continue
		}

		if !snap.Complete {
			announced = false
		}
		newExercise := snap.Exercise != nil && (prev.Exercise == nil || snap.Presented != prev.Presented || line == practiceReset)
		printSnapshot(out, snap, newExercise)
	}
}

func printSnapshot(out io.Writer, snap session.Snapshot, showPrompt bool) {
	if snap.Error != "" {
		fmt.Fprintln(out, snap.Error)
		return
	}
	if fb := snap.Feedback; fb != nil {
		fmt.Fprintln(out, fb.Message)
		if fb.Kind == session.FeedbackIncorrect || fb.Kind == session.FeedbackAlmost {
			fmt.Fprintf(out, "Intentos restantes: %d\n", snap.AttemptsLeft())
		}
	}
	if snap.Hint != "" && !showPrompt {
		fmt.Fprintf(out, "Pista: %s\n", snap.Hint)
	}
	if showPrompt && snap.Exercise != nil {
		fmt.Fprintf(out, "\n%s %3.0f%%  ✓%d ✗%d →%d\n",
			renderProgressBar(snap.Progress/100, 20), snap.Progress,
			snap.Stats.Correct, snap.Stats.Incorrect, snap.Stats.Skipped)
		fmt.Fprintln(out, snap.Exercise.Prompt)
		if snap.Exercise.HasHint {
			fmt.Fprintf(out, "(escribe %s para ver una pista)\n", practiceHint)
		}
	}
}

// printCompletion is shown once every exercise in the pool has been answered
// or skipped
func printCompletion(out io.Writer, snap session.Snapshot) {
	fmt.Fprintln(out, "\n¡Felicidades! Has completado todos los ejercicios.")
	printSummary(out, snap)
}

func printSummary(out io.Writer, snap session.Snapshot) {
	fmt.Fprintf(out, "\nCorrectas: %d  Incorrectas: %d  Saltadas: %d\n",
		snap.Stats.Correct, snap.Stats.Incorrect, snap.Stats.Skipped)
}
