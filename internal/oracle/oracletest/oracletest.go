// Package oracletest provides a scripted Oracle for tests.
package oracletest

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Rule answers every prompt containing Match with Reply, or fails with Err.
type Rule struct {
	Match string
	Reply string
	Err   error
}

// Scripted answers prompts with the first matching rule and records every
// prompt it sees. A prompt with no matching rule is an error.
type Scripted struct {
	mu      sync.Mutex
	rules   []Rule
	prompts []string
}

func New(rules ...Rule) *Scripted {
	return &Scripted{rules: rules}
}

func (s *Scripted) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	for _, rule := range s.rules {
		if strings.Contains(prompt, rule.Match) {
			if rule.Err != nil {
				return "", rule.Err
			}
			return rule.Reply, nil
		}
	}
	return "", fmt.Errorf("oracletest: no rule matches prompt %.60q", prompt)
}

func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Count reports how many recorded prompts contain substr.
func (s *Scripted) Count(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, prompt := range s.prompts {
		if strings.Contains(prompt, substr) {
			n++
		}
	}
	return n
}
