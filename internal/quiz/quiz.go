package quiz

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var questionsYAML []byte

var (
	ErrUnknownCategory = errors.New("unknown quiz category")
	ErrNoCategory      = errors.New("no category selected")
	ErrNoOpenQuestion  = errors.New("no question awaiting an answer")
	ErrSessionNotFound = errors.New("quiz session not found")
)

type Question struct {
	ID       string   `yaml:"id" json:"id"`
	Type     string   `yaml:"type" json:"type"`
	Question string   `yaml:"question" json:"question"`
	Answer   string   `yaml:"answer" json:"-"`
	Options  []string `yaml:"options" json:"options,omitempty"`
	Hint     string   `yaml:"hint" json:"hint,omitempty"`
}

type Result struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
}

// Pools maps a category name to its fixed question list.
type Pools map[string][]Question

func LoadPools() (Pools, error) {
	return ParsePools(questionsYAML)
}

func ParsePools(data []byte) (Pools, error) {
	var pools Pools
	if err := yaml.Unmarshal(data, &pools); err != nil {
		return nil, fmt.Errorf("parsing questions: %w", err)
	}
	for category, questions := range pools {
		seen := make(map[string]bool)
		for _, question := range questions {
			if question.ID == "" || seen[question.ID] {
				return nil, fmt.Errorf("category %s: missing or duplicate question id %q", category, question.ID)
			}
			seen[question.ID] = true
		}
	}
	return pools, nil
}

func (pools Pools) Categories() []string {
	categories := make([]string, 0, len(pools))
	for category := range pools {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

// Session serves one category's pool without replacement.
type Session struct {
	mutex     sync.Mutex
	pools     Pools
	category  string
	presented map[string]bool
	current   *Question
	answered  bool
	results   []Result
}

func NewSession(pools Pools) *Session {
	return &Session{pools: pools, presented: make(map[string]bool)}
}

func (session *Session) SelectCategory(category string) error {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	if _, ok := session.pools[category]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	session.category = category
	session.resetLocked()
	return nil
}

func (session *Session) Category() string {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return session.category
}

// Next presents a random question not yet shown in this session. It
// returns false once the pool is exhausted.
func (session *Session) Next() (Question, bool, error) {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	if session.category == "" {
		return Question{}, false, ErrNoCategory
	}

	var remaining []Question
	for _, question := range session.pools[session.category] {
		if !session.presented[question.ID] {
			remaining = append(remaining, question)
		}
	}
	if len(remaining) == 0 {
		session.current = nil
		return Question{}, false, nil
	}

	question := remaining[rand.IntN(len(remaining))]
	session.presented[question.ID] = true
	session.current = &question
	session.answered = false
	return question, true, nil
}

func (session *Session) Current() (Question, bool) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if session.current == nil {
		return Question{}, false
	}
	return *session.current, true
}

// Submit scores the answer to the current question using trimmed,
// case-insensitive equality.
func (session *Session) Submit(answer string) (Result, error) {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	if session.current == nil || session.answered {
		return Result{}, ErrNoOpenQuestion
	}

	result := Result{
		QuestionID:    session.current.ID,
		Correct:       strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(session.current.Answer)),
		UserAnswer:    answer,
		CorrectAnswer: session.current.Answer,
	}
	session.results = append(session.results, result)
	session.answered = true
	return result, nil
}

func (session *Session) Results() []Result {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return append([]Result(nil), session.results...)
}

func (session *Session) Score() (int, int) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return session.scoreLocked()
}

func (session *Session) scoreLocked() (int, int) {
	correct := 0
	for _, result := range session.results {
		if result.Correct {
			correct++
		}
	}
	return correct, len(session.results)
}

// Percentage is the rounded share of correct answers, 0 before any answer.
func (session *Session) Percentage() int {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	correct, total := session.scoreLocked()
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

func (session *Session) IsComplete() bool {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if session.category == "" {
		return false
	}
	return len(session.presented) == len(session.pools[session.category])
}

// Restart clears progress but keeps the category.
func (session *Session) Restart() {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	session.resetLocked()
}

func (session *Session) resetLocked() {
	session.presented = make(map[string]bool)
	session.current = nil
	session.answered = false
	session.results = nil
}

type Summary struct {
	Category   string    `json:"category"`
	Current    *Question `json:"current,omitempty"`
	Answered   bool      `json:"answered"`
	Correct    int       `json:"correct"`
	Total      int       `json:"total"`
	Percentage int       `json:"percentage"`
	Complete   bool      `json:"complete"`
	PoolSize   int       `json:"poolSize"`
	Presented  int       `json:"presented"`
}

func (session *Session) Summary() Summary {
	session.mutex.Lock()
	correct, total := session.scoreLocked()
	summary := Summary{
		Category:  session.category,
		Answered:  session.answered,
		Correct:   correct,
		Total:     total,
		PoolSize:  len(session.pools[session.category]),
		Presented: len(session.presented),
	}
	if session.current != nil {
		current := *session.current
		summary.Current = &current
	}
	session.mutex.Unlock()

	summary.Percentage = session.Percentage()
	summary.Complete = summary.Category != "" && summary.Presented == summary.PoolSize
	return summary
}
