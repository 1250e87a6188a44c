package storage

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// MessageMatch is one message hit from a transcript search.
type MessageMatch struct {
	SessionID    string
	SessionName  string
	MessageIndex int
	Role         string
	Content      string
	Preview      string
}

// SearchSessions fuzzy-matches session names and returns metadata in
// match-quality order. An empty query returns everything.
func (s *Store) SearchSessions(query string) ([]SessionMetadata, error) {
	list, err := s.ListSessions()
	if err != nil {
		return nil, err
	}
	if query == "" {
		return list, nil
	}

	targets := make([]string, len(list))
	for i, meta := range list {
		targets[i] = meta.Name
	}

	matches := fuzzy.Find(query, targets)
	filtered := make([]SessionMetadata, len(matches))
	for i, match := range matches {
		filtered[i] = list[match.Index]
	}
	return filtered, nil
}

// SearchMessages scans every session transcript for messages containing
// the query, case-insensitive. System messages are skipped.
func (s *Store) SearchMessages(query string) ([]MessageMatch, error) {
	if query == "" {
		return []MessageMatch{}, nil
	}

	list, err := s.ListSessions()
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	var matches []MessageMatch

	for _, meta := range list {
		session, err := s.LoadSession(meta.ID)
		if err != nil {
			continue
		}

		for i, msg := range session.Messages {
			if msg.Role == "system" {
				continue
			}
			if !strings.Contains(strings.ToLower(msg.Content), queryLower) {
				continue
			}

			preview := msg.Content
			if len(preview) > 100 {
				preview = preview[:100] + "..."
			}
			matches = append(matches, MessageMatch{
				SessionID:    session.ID,
				SessionName:  session.Name,
				MessageIndex: i,
				Role:         msg.Role,
				Content:      msg.Content,
				Preview:      preview,
			})
		}
	}

	return matches, nil
}
