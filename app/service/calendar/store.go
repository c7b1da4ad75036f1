package calendar

import (
	"bufio"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

// Store persists meetings as one JSON object per line. A missing or
// malformed file is treated as an empty calendar, never as a fatal error:
// the negotiation protocol must keep working even if the store was lost.
type Store struct {
	path     string
	validate *validator.Validate
}

func NewStore(path string) *Store {
	return &Store{
		path:     path,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Store) Load() []Meeting {
	file, err := os.Open(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Meetings store is unreadable, starting with an empty calendar",
				"path", s.path,
				"error", err)
		}

		return nil
	}
	defer file.Close()

	var meetings []Meeting

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var m Meeting
		if err = json.Unmarshal(line, &m); err != nil {
			slog.Warn("Meetings store is corrupt, starting with an empty calendar",
				"path", s.path,
				"error", err)
			return nil
		}

		if err = s.validate.Struct(m); err != nil {
			slog.Warn("Meetings store entry does not match the schema, starting with an empty calendar",
				"path", s.path,
				"error", err)
			return nil
		}

		meetings = append(meetings, m)
	}

	if err = scanner.Err(); err != nil {
		slog.Warn("Failed to read meetings store, starting with an empty calendar",
			"path", s.path,
			"error", err)
		return nil
	}

	return meetings
}

func (s *Store) Save(meetings []Meeting) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return oops.Errorf("failed to create store directory: %w", err)
		}
	}

	file, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return oops.Errorf("failed to open meetings store: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	for _, m := range meetings {
		data, err := json.Marshal(m)
		if err != nil {
			return oops.Errorf("failed to marshal meeting: %w", err)
		}

		if _, err = writer.Write(append(data, '\n')); err != nil {
			return oops.Errorf("failed to write meeting: %w", err)
		}
	}

	if err = writer.Flush(); err != nil {
		return oops.Errorf("failed to flush meetings store: %w", err)
	}

	return nil
}
