// Package history keeps a per-user log of analyses with score trends between
// consecutive entries.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/analysis"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/scoring"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Trend compares a score with the previous entry.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// OverallKey is the Trends key of the overall score.
const OverallKey = "score"

// ErrInvalidUser is returned for user names that cannot be used as file names.
var ErrInvalidUser = errors.New("invalid history user")

var userPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// Entry is one recorded analysis.
type Entry struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	FileName  string           `json:"fileName"`
	Result    analysis.Result  `json:"result"`
	Trends    map[string]Trend `json:"trends,omitempty"`
}

type file struct {
	Items []Entry `json:"items"`
}

// lockTimeout bounds how long Append waits for another process writing the
// same user's history.
const lockTimeout = 10 * time.Second

// Store saves one JSON file per user under a directory. Writers in one process
// are serialized by a mutex and writers in different processes by an advisory
// lock on <user>.json.lock.
type Store struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("history directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger, now: time.Now}, nil
}

// Append records result for user and returns the new entry with trends
// computed against the user's latest entry.
func (s *Store) Append(user, fileName string, result analysis.Result) (Entry, error) {
	path, err := s.path(user)
	if err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := lockFile(path)
	if err != nil {
		return Entry{}, err
	}
	defer unlock()

	h, err := readFile(path)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: s.now().UTC(),
		FileName:  fileName,
		Result:    result,
	}
	if n := len(h.Items); n > 0 {
		entry.Trends = Trends(h.Items[n-1].Result.Result, result.Result)
	}
	h.Items = append(h.Items, entry)

	if err := writeFile(path, h); err != nil {
		return Entry{}, err
	}

	s.logger.Info("History entry added",
		zap.String("user", user),
		zap.String("id", entry.ID),
		zap.String("hash", result.Hash),
		zap.Int("entries", len(h.Items)),
	)

	return entry, nil
}

// List returns the entries of user, oldest first.
func (s *Store) List(user string) ([]Entry, error) {
	path, err := s.path(user)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return h.Items, nil
}

func (s *Store) path(user string) (string, error) {
	if !userPattern.MatchString(user) {
		return "", fmt.Errorf("%w: %q", ErrInvalidUser, user)
	}
	return filepath.Join(s.dir, user+".json"), nil
}

// Trends compares every category and the overall score of cur with prev.
func Trends(prev, cur scoring.Result) map[string]Trend {
	trends := make(map[string]Trend, len(scoring.Categories)+1)
	for _, c := range scoring.Categories {
		trends[string(c)] = compare(prev.Categories.Get(c), cur.Categories.Get(c))
	}
	trends[OverallKey] = compare(prev.Overall, cur.Overall)
	return trends
}

func compare(prev, cur int) Trend {
	switch {
	case cur > prev:
		return TrendUp
	case cur < prev:
		return TrendDown
	default:
		return TrendStable
	}
}

func readFile(path string) (*file, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &file{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}
	if len(data) == 0 {
		return &file{}, nil
	}

	var h file
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decoding history file %s: %w", path, err)
	}
	return &h, nil
}

func writeFile(path string, h *file) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".history-*")
	if err != nil {
		return fmt.Errorf("creating temp history file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing history file: %w", err)
	}
	return nil
}

// lockFile takes the cross-process lock guarding path.
func lockFile(path string) (func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	fl := flock.New(path + ".lock")
	locked, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("locking history %s: %w", filepath.Base(path), err)
	}
	if !locked {
		return nil, fmt.Errorf("locking history %s: timed out", filepath.Base(path))
	}
	return func() { _ = fl.Unlock() }, nil
}
