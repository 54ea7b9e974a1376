package taskgen_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seluk/margo/internal/domain/model"
	"github.com/seluk/margo/internal/taskgen"
)

type stubBackend struct {
	questions []string
	err       error
	calls     int
}

func (s *stubBackend) Generate(_ context.Context, _ taskgen.Chunk, _ int) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.questions, nil
}

func wordText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(words, " ")
}

func TestChunkText(t *testing.T) {
	t.Run("splits on word windows", func(t *testing.T) {
		chunks := taskgen.ChunkText(wordText(120), 50)
		require.Len(t, chunks, 3)

		assert.Equal(t, 1, chunks[0].Index)
		assert.Equal(t, 2, chunks[1].Index)
		assert.Equal(t, 3, chunks[2].Index)
		assert.Len(t, strings.Fields(chunks[0].Text), 50)
		assert.Len(t, strings.Fields(chunks[1].Text), 50)
		assert.Len(t, strings.Fields(chunks[2].Text), 20)

		rejoined := strings.Join([]string{chunks[0].Text, chunks[1].Text, chunks[2].Text}, " ")
		assert.Equal(t, wordText(120), rejoined)
	})

	t.Run("zero window falls back to the default", func(t *testing.T) {
		chunks := taskgen.ChunkText(wordText(600), 0)
		require.Len(t, chunks, 2)
		assert.Len(t, strings.Fields(chunks[0].Text), 500)
		assert.Len(t, strings.Fields(chunks[1].Text), 100)
	})

	t.Run("empty text yields no chunks", func(t *testing.T) {
		assert.Nil(t, taskgen.ChunkText("", 50))
		assert.Nil(t, taskgen.ChunkText("   \n\t ", 50))
	})

	t.Run("summary is the first three sentences", func(t *testing.T) {
		text := "This is a test. Second sentence. Third sentence about physics. Fourth sentence."
		chunks := taskgen.ChunkText(text, 500)
		require.Len(t, chunks, 1)
		assert.Equal(t, "This is a test. Second sentence. Third sentence about physics.", chunks[0].Summary)
	})

	t.Run("short chunks keep every sentence", func(t *testing.T) {
		chunks := taskgen.ChunkText("Only one sentence here.", 500)
		require.Len(t, chunks, 1)
		assert.Equal(t, "Only one sentence here.", chunks[0].Summary)
	})

	t.Run("decimals do not break sentences", func(t *testing.T) {
		chunks := taskgen.ChunkText("Pi is 3.14 exactly here. Next sentence. Third one. Fourth one.", 500)
		require.Len(t, chunks, 1)
		assert.Equal(t, "Pi is 3.14 exactly here. Next sentence. Third one.", chunks[0].Summary)
	})
}

func TestKeywords(t *testing.T) {
	t.Run("filters and deduplicates in first-seen order", func(t *testing.T) {
		text := "The waggle dance is the waggle language that bees use through vibration."
		assert.Equal(t, []string{"waggle", "dance", "language", "bees", "vibration"}, taskgen.Keywords(text))
	})

	t.Run("caps the list", func(t *testing.T) {
		words := make([]string, 30)
		for i := range words {
			words[i] = fmt.Sprintf("keyword%02d", i)
		}
		kws := taskgen.Keywords(strings.Join(words, " "))
		assert.Len(t, kws, 12)
		assert.Equal(t, "keyword00", kws[0])
	})

	t.Run("trims punctuation before filtering", func(t *testing.T) {
		assert.Equal(t, []string{"comb", "darkness"}, taskgen.Keywords("(comb), \"darkness!\""))
	})
}

func TestEntities(t *testing.T) {
	t.Run("collects mid-sentence capitalized runs", func(t *testing.T) {
		text := "Researchers studied Marie Curie in the lab near Paris."
		assert.Equal(t, []string{"Marie Curie", "Paris"}, taskgen.Entities(text))
	})

	t.Run("skips single sentence openers but keeps multi-word ones", func(t *testing.T) {
		text := "Researchers left early. New York kept the archives."
		assert.Equal(t, []string{"New York"}, taskgen.Entities(text))
	})

	t.Run("deduplicates", func(t *testing.T) {
		text := "They met Ada. They phoned Ada. They wrote to Ada."
		assert.Equal(t, []string{"Ada"}, taskgen.Entities(text))
	})
}

func TestHeuristicBackend(t *testing.T) {
	chunk := taskgen.Chunk{
		Index:    1,
		Text:     "The waggle dance encodes distance.",
		Summary:  "The waggle dance encodes distance.",
		Keywords: []string{"waggle", "dance", "distance"},
		Entities: []string{"Karl"},
	}

	backend := taskgen.HeuristicBackend{}

	qs, err := backend.Generate(context.Background(), chunk, 3)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, "What is the main idea of this passage?", qs[0])
	assert.Equal(t, "What does the passage say about waggle?", qs[1])
	assert.Equal(t, "What does the passage say about dance?", qs[2])

	again, err := backend.Generate(context.Background(), chunk, 3)
	require.NoError(t, err)
	assert.Equal(t, qs, again)
}

func TestLMStudioBackend(t *testing.T) {
	chunk := taskgen.Chunk{
		Index:   1,
		Text:    "The hive decides together.",
		Summary: "The hive decides together.",
	}

	t.Run("parses a numbered list", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/completions", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "test-model", req["model"])
			prompt, _ := req["prompt"].(string)
			assert.Contains(t, prompt, "The hive decides together.")
			assert.Contains(t, prompt, "Number each question.")

			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]string{
					{"text": "1. What is the main idea?\n2. Why is this important?\n3. How does it work?"},
				},
			})
		}))
		defer srv.Close()

		backend := taskgen.NewLMStudioBackend(
			taskgen.WithBaseURL(srv.URL),
			taskgen.WithModel("test-model"),
			taskgen.WithHTTPClient(srv.Client()),
		)

		qs, err := backend.Generate(context.Background(), chunk, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"What is the main idea?",
			"Why is this important?",
			"How does it work?",
		}, qs)
	})

	t.Run("caps at the question budget", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]string{
					{"text": "1) First?\n2) Second?\n3) Third?\n4) Fourth?"},
				},
			})
		}))
		defer srv.Close()

		backend := taskgen.NewLMStudioBackend(taskgen.WithBaseURL(srv.URL))
		qs, err := backend.Generate(context.Background(), chunk, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"First?", "Second?"}, qs)
	})

	t.Run("reports server errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
		}))
		defer srv.Close()

		backend := taskgen.NewLMStudioBackend(taskgen.WithBaseURL(srv.URL))
		_, err := backend.Generate(context.Background(), chunk, 3)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
	})

	t.Run("rejects empty completions", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		}))
		defer srv.Close()

		backend := taskgen.NewLMStudioBackend(taskgen.WithBaseURL(srv.URL))
		_, err := backend.Generate(context.Background(), chunk, 3)
		assert.ErrorIs(t, err, taskgen.ErrEmptyCompletion)
	})
}

func TestGenerator(t *testing.T) {
	t.Run("binds questions to chunks", func(t *testing.T) {
		stub := &stubBackend{questions: []string{"Q one?", "Q two?"}}
		gen := taskgen.NewGenerator(
			taskgen.WithBackend(stub),
			taskgen.WithMaxWords(50),
			taskgen.WithMaxQuestions(2),
		)

		questions, err := gen.Generate(context.Background(), wordText(120))
		require.NoError(t, err)
		assert.Equal(t, 3, stub.calls)
		require.Len(t, questions, 6)
		assert.Equal(t, 1, questions[0].ChunkIndex)
		assert.Equal(t, 3, questions[5].ChunkIndex)
		assert.Equal(t, "Q one?", questions[0].Question)
	})

	t.Run("trims over-generous backends", func(t *testing.T) {
		stub := &stubBackend{questions: []string{"A?", "B?", "C?", "D?"}}
		gen := taskgen.NewGenerator(taskgen.WithBackend(stub), taskgen.WithMaxQuestions(2))

		questions, err := gen.Generate(context.Background(), "Short passage here.")
		require.NoError(t, err)
		assert.Len(t, questions, 2)
	})

	t.Run("propagates backend failures with the chunk index", func(t *testing.T) {
		boom := errors.New("model offline")
		gen := taskgen.NewGenerator(taskgen.WithBackend(&stubBackend{err: boom}))

		_, err := gen.Generate(context.Background(), "Some passage.")
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "chunk 1")
	})

	t.Run("rejects empty passages", func(t *testing.T) {
		gen := taskgen.NewGenerator()
		_, err := gen.Generate(context.Background(), "  ")
		assert.ErrorIs(t, err, taskgen.ErrNoContent)
	})
}

func TestBuildTaskList(t *testing.T) {
	stub := &stubBackend{questions: []string{
		"What is the waggle dance?",
		"Define the term forager as the passage uses it.",
	}}
	gen := taskgen.NewGenerator(taskgen.WithBackend(stub), taskgen.WithMaxQuestions(2))

	tasks, err := gen.BuildTaskList(context.Background(), "The forager dances. The hive watches.")
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	assert.Equal(t, "t1", tasks[0].ID)
	assert.Equal(t, model.TaskEvidenceCapture, tasks[0].Kind)

	assert.Equal(t, "t2", tasks[1].ID)
	assert.Equal(t, model.TaskShortAnswer, tasks[1].Kind)
	assert.Equal(t, "What is the waggle dance?", tasks[1].Prompt)

	assert.Equal(t, "t3", tasks[2].ID)
	assert.Equal(t, model.TaskDefinition, tasks[2].Kind)
}

func TestExport(t *testing.T) {
	qs := []taskgen.Question{
		{ChunkIndex: 1, Question: "What is the main idea?", Summary: "S1.", Keywords: []string{"physics", "math"}, Entities: []string{"London"}},
		{ChunkIndex: 1, Question: "Why is this important?", Summary: "S1.", Keywords: []string{"physics", "math"}, Entities: []string{"London"}},
		{ChunkIndex: 2, Question: "How does it work?", Summary: "S2.", Keywords: nil, Entities: nil},
	}

	t.Run("json round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "questions.json")
		require.NoError(t, taskgen.WriteJSON(qs, path))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)

		var got []taskgen.Question
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, qs[0].Question, got[0].Question)
		assert.Len(t, got, 3)
	})

	t.Run("csv layout", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "questions.csv")
		require.NoError(t, taskgen.WriteCSV(qs, path))

		f, err := os.Open(path)
		require.NoError(t, err)
		defer func() { _ = f.Close() }()

		rows, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)

		// Header plus one row per question.
		require.Len(t, rows, 4)
		assert.Equal(t, []string{"chunk_idx", "question", "summary", "keywords", "entities"}, rows[0])
		assert.Equal(t, "1", rows[1][0])
		assert.Equal(t, "physics; math", rows[1][3])
		assert.Equal(t, "London", rows[1][4])
		assert.Equal(t, "", rows[3][3])
	})
}

func TestWriteTaskConfig(t *testing.T) {
	tasks := taskgen.TaskList([]taskgen.Question{
		{ChunkIndex: 1, Question: "What is the waggle dance?"},
		{ChunkIndex: 1, Question: "Define forager as the passage uses it."},
	})
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, taskgen.WriteTaskConfig(tasks, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got struct {
		Tasks []struct {
			ID     string `json:"id"`
			Kind   string `json:"kind"`
			Prompt string `json:"prompt"`
		} `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got.Tasks, 3)

	assert.Equal(t, "t1", got.Tasks[0].ID)
	assert.Equal(t, string(model.TaskEvidenceCapture), got.Tasks[0].Kind)
	assert.Equal(t, string(model.TaskShortAnswer), got.Tasks[1].Kind)
	assert.Equal(t, "What is the waggle dance?", got.Tasks[1].Prompt)
	assert.Equal(t, string(model.TaskDefinition), got.Tasks[2].Kind)

	// The snippet never carries session state, only the authorable fields.
	assert.NotContains(t, string(raw), "completed")
}
