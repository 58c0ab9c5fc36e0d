package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rauth/examprep-backend/internal/assessment"
	"github.com/rauth/examprep-backend/internal/model"
	"gopkg.in/yaml.v3"
)

// questionSet is what the player runs: a title, an explicit duration (zero
// lets the policy decide) and the validated questions.
type questionSet struct {
	Title           string
	DurationSeconds int
	Questions       []assessment.QuestionRecord
}

// fileDocument is the object form of a question file. A file may also be a
// bare list of questions.
type fileDocument struct {
	Title     string                   `json:"title" yaml:"title"`
	TimeLimit int                      `json:"timeLimit" yaml:"timeLimit"`
	Duration  int                      `json:"duration" yaml:"duration"`
	Questions []assessment.RawQuestion `json:"questions" yaml:"questions"`
}

// loadFile reads a question set from a .yaml, .yml or .json file.
func loadFile(path string) (*questionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var unmarshal func([]byte, any) error
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	case ".json":
		unmarshal = json.Unmarshal
	default:
		return nil, fmt.Errorf("unsupported question file %q: want .yaml, .yml or .json", path)
	}

	set := &questionSet{Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	if isList(bytes.TrimSpace(data)) {
		if ext == ".json" {
			set.Questions, err = assessment.DecodeQuestions(data)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
			return set, nil
		}
		var raw []assessment.RawQuestion
		if err := unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return set.load(path, raw)
	}

	var doc fileDocument
	if err := unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc.Title != "" {
		set.Title = doc.Title
	}
	// Minutes, as in stored content.
	switch {
	case doc.Duration > 0:
		set.DurationSeconds = doc.Duration * 60
	case doc.TimeLimit > 0:
		set.DurationSeconds = doc.TimeLimit * 60
	}
	return set.load(path, doc.Questions)
}

func (s *questionSet) load(source string, raw []assessment.RawQuestion) (*questionSet, error) {
	qs, err := assessment.LoadQuestions(raw)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}
	s.Questions = qs
	return s, nil
}

// isList reports whether a JSON or YAML document is a top-level sequence.
func isList(data []byte) bool {
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' || bytes.Equal(line, []byte("---")) {
			continue
		}
		return line[0] == '[' || line[0] == '-'
	}
	return false
}

// fetchContent downloads a quiz or mock exam, answer keys included, from the
// content API.
func fetchContent(ctx context.Context, apiURL, token string, kind assessment.Kind, id string) (*questionSet, error) {
	path, field := "/quizzes/", "quiz"
	if kind == assessment.KindExam {
		path, field = "/mockexams/", "mock_exam"
	}
	url := strings.TrimRight(apiURL, "/") + path + id + "?include=answers"

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", kind, id, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", kind, id, err)
	}

	var env struct {
		Data  map[string]json.RawMessage `json:"data"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("fetch %s %s: http %d: unreadable response", kind, id, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || env.Error != nil {
		if env.Error != nil {
			return nil, fmt.Errorf("fetch %s %s: %s (%s)", kind, id, env.Error.Message, env.Error.Code)
		}
		return nil, fmt.Errorf("fetch %s %s: http %d", kind, id, resp.StatusCode)
	}

	raw, ok := env.Data[field]
	if !ok {
		return nil, fmt.Errorf("fetch %s %s: response has no %s", kind, id, field)
	}
	if kind == assessment.KindExam {
		var e model.MockExam
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode mock exam: %w", err)
		}
		set := &questionSet{Title: e.Title, DurationSeconds: e.Duration * 60}
		return set.load(string(kind)+" "+id, e.Questions)
	}
	var q model.Quiz
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("decode quiz: %w", err)
	}
	set := &questionSet{Title: q.Title, DurationSeconds: q.TimeLimit * 60}
	return set.load(string(kind)+" "+id, q.Questions)
}
