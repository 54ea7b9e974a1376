package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seluk/margo/internal/ingest"
	"github.com/seluk/margo/internal/taskgen"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate session tasks from a reading passage",
	Long: `Generate chunks a passage into word windows, derives summaries and
keywords per chunk, asks the question backend for prompts, and writes the
result as a question sheet (JSON or CSV) or a servable task list.

The default backend is the offline heuristic generator. Pass --backend
lmstudio to generate through an OpenAI-compatible completions endpoint.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("input", "", "passage file (.txt, .md, or .pdf); empty uses the embedded sample")
	generateCmd.Flags().String("json", "", "write the question sheet as JSON to this path")
	generateCmd.Flags().String("csv", "", "write the question sheet as CSV to this path")
	generateCmd.Flags().String("tasks", "", "write a task list config snippet to this path (loadable via MARGO_CONFIG)")
	generateCmd.Flags().String("backend", "heuristic", "question backend: heuristic or lmstudio")
	generateCmd.Flags().String("base-url", "", "completions endpoint base URL (lmstudio backend)")
	generateCmd.Flags().String("model", "", "model identifier (lmstudio backend)")
	generateCmd.Flags().Int("max-words", 0, "chunk window size in words (default 500)")
	generateCmd.Flags().Int("max-questions", 0, "questions per chunk (default 3)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	input, _ := flags.GetString("input")
	jsonPath, _ := flags.GetString("json")
	csvPath, _ := flags.GetString("csv")
	tasksPath, _ := flags.GetString("tasks")
	backendName, _ := flags.GetString("backend")
	baseURL, _ := flags.GetString("base-url")
	modelName, _ := flags.GetString("model")
	maxWords, _ := flags.GetInt("max-words")
	maxQuestions, _ := flags.GetInt("max-questions")

	if jsonPath == "" && csvPath == "" && tasksPath == "" {
		return errors.New("nothing to write: pass --json, --csv, or --tasks")
	}

	opts := []taskgen.Option{
		taskgen.WithMaxWords(maxWords),
		taskgen.WithMaxQuestions(maxQuestions),
	}
	switch backendName {
	case "heuristic":
		// Default backend, nothing to configure.
	case "lmstudio":
		var backendOpts []taskgen.BackendOption
		if baseURL != "" {
			backendOpts = append(backendOpts, taskgen.WithBaseURL(baseURL))
		}
		if modelName != "" {
			backendOpts = append(backendOpts, taskgen.WithModel(modelName))
		}
		opts = append(opts, taskgen.WithBackend(taskgen.NewLMStudioBackend(backendOpts...)))
	default:
		return fmt.Errorf("unknown backend %q: want heuristic or lmstudio", backendName)
	}

	ctx := cmd.Context()
	document, err := ingest.Load(ctx, input)
	if err != nil {
		return fmt.Errorf("load passage: %w", err)
	}

	questions, err := taskgen.NewGenerator(opts...).Generate(ctx, document.Text())
	if err != nil {
		return err
	}

	if jsonPath != "" {
		if err := taskgen.WriteJSON(questions, jsonPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d questions to %s\n", len(questions), jsonPath)
	}
	if csvPath != "" {
		if err := taskgen.WriteCSV(questions, csvPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d questions to %s\n", len(questions), csvPath)
	}
	if tasksPath != "" {
		tasks := taskgen.TaskList(questions)
		if err := taskgen.WriteTaskConfig(tasks, tasksPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d tasks to %s\n", len(tasks), tasksPath)
	}
	return nil
}
