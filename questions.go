/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"html"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
)

// Wire format of the question provider (Open Trivia DB compatible).
type providerResponse struct {
	ResponseCode int              `json:"response_code"`
	Results      []providerResult `json:"results"`
}

type providerResult struct {
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// QuestionLoader fetches a batch of multiple-choice questions from the
// provider. Any failure (transport, non-200, non-0 response code,
// malformed body) falls back to a small static list, so callers always
// receive a usable set.
type QuestionLoader struct {
	baseURL string
	client  *http.Client
}

func newQuestionLoader(baseURL string) *QuestionLoader {
	return &QuestionLoader{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (l *QuestionLoader) Load(ctx context.Context, amount int, category, difficulty string) []QuestionRecord {
	params := url.Values{}
	params.Set("amount", strconv.Itoa(amount))
	params.Set("category", category)
	params.Set("difficulty", difficulty)
	params.Set("type", "multiple")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fallbackQuestions()
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fallbackQuestions()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fallbackQuestions()
	}

	var parsed providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fallbackQuestions()
	}
	if parsed.ResponseCode != 0 || len(parsed.Results) == 0 {
		return fallbackQuestions()
	}

	questions := make([]QuestionRecord, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		// The provider HTML-escapes its text; decode once at fetch time.
		correct := html.UnescapeString(result.CorrectAnswer)
		incorrect := make([]string, len(result.IncorrectAnswers))
		for i, answer := range result.IncorrectAnswers {
			incorrect[i] = html.UnescapeString(answer)
		}

		questions = append(questions, QuestionRecord{
			Question:         html.UnescapeString(result.Question),
			CorrectAnswer:    correct,
			IncorrectAnswers: incorrect,
			Answers:          shuffledAnswers(correct, incorrect),
			Category:         html.UnescapeString(result.Category),
			Difficulty:       result.Difficulty,
		})
	}

	return questions
}

// shuffledAnswers combines the correct and incorrect answers into one
// list and applies an unbiased Fisher-Yates shuffle. The resulting
// order is fixed for the lifetime of the room.
func shuffledAnswers(correct string, incorrect []string) []string {
	answers := make([]string, 0, len(incorrect)+1)
	answers = append(answers, correct)
	answers = append(answers, incorrect...)

	for i := len(answers) - 1; i > 0; i-- {
		j := cryptoIntn(i + 1)
		answers[i], answers[j] = answers[j], answers[i]
	}

	return answers
}

// cryptoIntn returns a uniform random int in [0, n) from crypto/rand.
func cryptoIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return int(v.Int64())
}

// fallbackQuestions returns the static question set used whenever the
// provider is unavailable. Answer order is fixed here, so all players
// still see identical option positions.
func fallbackQuestions() []QuestionRecord {
	return []QuestionRecord{
		{
			Question:         "What is the capital of France?",
			CorrectAnswer:    "Paris",
			IncorrectAnswers: []string{"London", "Berlin", "Madrid"},
			Answers:          []string{"London", "Paris", "Berlin", "Madrid"},
			Category:         "Geography",
			Difficulty:       "easy",
		},
		{
			Question:         "Who wrote 'Hamlet'?",
			CorrectAnswer:    "William Shakespeare",
			IncorrectAnswers: []string{"Charles Dickens", "Leo Tolstoy", "Mark Twain"},
			Answers:          []string{"Charles Dickens", "William Shakespeare", "Leo Tolstoy", "Mark Twain"},
			Category:         "Literature",
			Difficulty:       "easy",
		},
	}
}
