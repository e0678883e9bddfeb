package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Awhitter/spanish1/internal/domain"
	"github.com/Awhitter/spanish1/internal/exercise"
)

// cmdExercise manages exercises
func cmdExercise(args []string) error {
	if len(args) < 1 {
		fmt.Println(`Exercise commands:

  spanish exercise list [module]    List exercises
  spanish exercise add [flags]      Add an exercise (admin)
  spanish exercise delete <id>      Delete an exercise (admin)
  spanish exercise import <file>    Import exercises from YAML or JSON (admin)`)
		return nil
	}

	switch args[0] {
	case "list":
		module := ""
		if len(args) > 1 {
			module = args[1]
		}
		return cmdExerciseList(module)
	case "add":
		return cmdExerciseAdd(args[1:])
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("exercise ID required")
		}
		return cmdExerciseDelete(args[1])
	case "import":
		if len(args) < 2 {
			return fmt.Errorf("file path required")
		}
		return cmdExerciseImport(args[1])
	default:
		return fmt.Errorf("unknown exercise command: %s", args[0])
	}
}

func cmdExerciseList(module string) error {
	c := newClient()
	if err := c.requireDaemon(); err != nil {
		return err
	}

	path := "/v1/exercises"
	if module != "" {
		path += "?module=" + url.QueryEscape(module)
	}

	var result struct {
		Exercises []domain.Exercise `json:"exercises"`
		Count     int               `json:"count"`
	}
	if err := c.do("GET", path, nil, &result); err != nil {
		return fmt.Errorf("get exercises: %w", err)
	}

	if result.Count == 0 {
		fmt.Println("No exercises found.")
		return nil
	}

	fmt.Printf("Exercises (%d):\n", result.Count)
	for _, ex := range result.Exercises {
		fmt.Printf("  %s\n", ex.ID)
		fmt.Printf("    %s\n", ex.Prompt)
		fmt.Printf("    Answers: %s", strings.Join(ex.AcceptableAnswers, ", "))
		if ex.Module != "" {
			fmt.Printf(" | Module: %s", ex.Module)
		}
		if ex.Difficulty != "" {
			fmt.Printf(" | Difficulty: %s", ex.Difficulty)
		}
		fmt.Print("\n\n")
	}
	return nil
}

func cmdExerciseAdd(args []string) error {
	fs := flag.NewFlagSet("exercise add", flag.ContinueOnError)
	prompt := fs.String("prompt", "", "prompt shown to the learner")
	answers := fs.String("answers", "", "comma-separated acceptable answers, canonical first")
	keywords := fs.String("keywords", "", "comma-separated keywords")
	difficulty := fs.String("difficulty", "", "easy, medium or hard")
	category := fs.String("category", "", "category label")
	hint := fs.String("hint", "", "hint text")
	module := fs.String("module", "", "module name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	file := exercise.ExerciseFile{
		Prompt:            *prompt,
		AcceptableAnswers: exercise.ParseList(*answers),
		Keywords:          exercise.ParseList(*keywords),
		Difficulty:        *difficulty,
		Category:          *category,
		Hint:              *hint,
		Module:            *module,
	}

	c := newClient()
	if err := c.requireDaemon(); err != nil {
		return err
	}

	var created domain.Exercise
	if err := c.do("POST", "/v1/exercises", file, &created); err != nil {
		return adminHint(fmt.Errorf("create exercise: %w", err))
	}

	fmt.Printf("✓ Exercise added: %s\n", created.ID)
	return nil
}

func cmdExerciseDelete(id string) error {
	c := newClient()
	if err := c.requireDaemon(); err != nil {
		return err
	}

	if err := c.do("DELETE", "/v1/exercises/"+url.PathEscape(id), nil, nil); err != nil {
		return adminHint(fmt.Errorf("delete exercise: %w", err))
	}

	fmt.Printf("✓ Exercise deleted: %s\n", id)
	return nil
}

func cmdExerciseImport(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	contentType := "application/yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		contentType = "application/json"
	}

	c := newClient()
	if err := c.requireDaemon(); err != nil {
		return err
	}

	var result struct {
		exercise.ImportResult
		Message string `json:"message"`
	}
	if err := c.do("POST", "/v1/exercises/import", rawBody{data: data, contentType: contentType}, &result); err != nil {
		return adminHint(fmt.Errorf("import exercises: %w", err))
	}

	fmt.Println(result.Message)
	for _, e := range result.Errors {
		fmt.Printf("  row %d: %s\n", e.Row, e.Message)
	}
	return nil
}

// cmdModules lists modules with their exercise counts
func cmdModules() error {
	c := newClient()
	if err := c.requireDaemon(); err != nil {
		return err
	}

	var result struct {
		Modules []domain.ModuleSummary `json:"modules"`
	}
	if err := c.do("GET", "/v1/modules", nil, &result); err != nil {
		return fmt.Errorf("get modules: %w", err)
	}

	if len(result.Modules) == 0 {
		fmt.Println("No modules yet.")
		return nil
	}

	fmt.Println("Modules:")
	for _, m := range result.Modules {
		fmt.Printf("  %-20s %3d exercises  (updated %s)\n", m.Name, m.Count, m.LastUpdated.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// cmdLogin exchanges the admin secret for a bearer token
func cmdLogin() error {
	c := newClient()
	if err := c.requireDaemon(); err != nil {
		return err
	}

	secret, err := readSecret(os.Stdin, "Admin secret: ")
	if err != nil {
		return err
	}

	var token struct {
		Token string `json:"token"`
	}
	if err := c.do("POST", "/v1/auth/login", map[string]string{"secret": secret}, &token); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if err := saveToken(token.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	fmt.Println("✓ Logged in")
	return nil
}

func readSecret(r io.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read input: %w", err)
	}
	secret := strings.TrimSpace(line)
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}
	return secret, nil
}
