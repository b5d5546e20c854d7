package healing

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FailureRecord is the serialized form of one exhausted candidate list.
type FailureRecord struct {
	Primary   string    `json:"primary"`
	Fallbacks []string  `json:"fallbacks"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// SnapshotStats are the aggregate counters of a session.
type SnapshotStats struct {
	TotalAttempts   int    `json:"totalAttempts"`
	SuccessfulHeals int    `json:"successfulHeals"`
	// HealingSuccessRate is "0%" when no attempts were made, otherwise a
	// percentage with exactly two decimals, e.g. "25.00%".
	HealingSuccessRate string `json:"healingSuccessRate"`
}

// Snapshot is the durable learning artifact of one session. It is the only
// state that crosses session boundaries.
type Snapshot struct {
	WorkingFallbacks map[string]string `json:"workingFallbacks"`
	FailedSelectors  []FailureRecord   `json:"failedSelectors"`
	Stats            SnapshotStats     `json:"stats"`
	ExportedAt       time.Time         `json:"exportedAt"`
}

// Tracker accumulates healing statistics for exactly one session. It is
// constructed explicitly and injected wherever outcomes are recorded; there
// is no package-level instance, so parallel sessions cannot leak into each
// other. Counters only grow; a fresh session gets a fresh Tracker.
type Tracker struct {
	mu               sync.Mutex
	sessionID        string
	log              *zap.Logger
	sinks            []EventSink
	totalAttempts    int
	successfulHeals  int
	workingFallbacks map[string]string
	failedSelectors  []FailureRecord
	now              func() time.Time
}

// NewTracker creates an empty tracker with a fresh session ID.
func NewTracker(log *zap.Logger) *Tracker {
	return &Tracker{
		sessionID:        uuid.NewString(),
		log:              log.Named("tracker"),
		workingFallbacks: make(map[string]string),
		now:              time.Now,
	}
}

// SessionID returns the identifier stamped onto this tracker's events.
func (t *Tracker) SessionID() string { return t.sessionID }

// Subscribe registers a sink for attempt/heal/failure events. Sinks are
// invoked synchronously in registration order.
func (t *Tracker) Subscribe(sink EventSink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sinks = append(t.sinks, sink)
}

func (t *Tracker) publishLocked(e Event) {
	e.Session = t.sessionID
	e.Timestamp = t.now()
	for _, s := range t.sinks {
		s.Publish(e)
	}
}

// RecordAttempt counts one resolution call, regardless of its outcome.
func (t *Tracker) RecordAttempt(primary string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalAttempts++
	t.publishLocked(Event{Kind: EventAttempt, Primary: primary})
}

// RecordHeal notes that matched (a non-primary candidate) worked where
// primary did not. The mapping is overwritten on every subsequent heal for
// the same primary, so the snapshot always carries the latest working
// fallback.
func (t *Tracker) RecordHeal(primary, matched string, candidateIndex int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successfulHeals++
	t.workingFallbacks[primary] = matched
	t.publishLocked(Event{
		Kind:           EventHeal,
		Primary:        primary,
		MatchedLocator: matched,
		CandidateIndex: candidateIndex,
	})
}

// RecordFailure appends an exhausted candidate list to failedSelectors.
func (t *Tracker) RecordFailure(rf *ResolutionFailure) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := FailureRecord{
		Primary:   rf.Attempted.Primary(),
		Fallbacks: rf.Attempted.Fallbacks(),
		Timestamp: rf.Timestamp,
	}
	if rf.LastErr != nil {
		rec.Error = rf.LastErr.Error()
	}
	t.failedSelectors = append(t.failedSelectors, rec)
	t.publishLocked(Event{Kind: EventFailure, Primary: rec.Primary, Error: rec.Error})
}

// Stats returns the current counters.
func (t *Tracker) Stats() SnapshotStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statsLocked()
}

func (t *Tracker) statsLocked() SnapshotStats {
	return SnapshotStats{
		TotalAttempts:      t.totalAttempts,
		SuccessfulHeals:    t.successfulHeals,
		HealingSuccessRate: formatRate(t.successfulHeals, t.totalAttempts),
	}
}

func formatRate(heals, attempts int) string {
	if attempts == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(heals)/float64(attempts)*100)
}

// Snapshot returns a deep copy of the learning state, stamped with the
// current time.
func (t *Tracker) Snapshot() *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	fallbacks := make(map[string]string, len(t.workingFallbacks))
	for k, v := range t.workingFallbacks {
		fallbacks[k] = v
	}
	failed := make([]FailureRecord, len(t.failedSelectors))
	copy(failed, t.failedSelectors)

	return &Snapshot{
		WorkingFallbacks: fallbacks,
		FailedSelectors:  failed,
		Stats:            t.statsLocked(),
		ExportedAt:       t.now().UTC(),
	}
}

// ExportTo serializes the snapshot to path, creating the parent directory
// if needed. Concurrent exports from different sessions to the same path are
// last-writer-wins; no lock is taken.
func (t *Tracker) ExportTo(path string) error {
	snap := t.Snapshot()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory %q: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize learning snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write learning snapshot to %q: %w", path, err)
	}

	t.log.Info("learning snapshot exported",
		zap.String("path", path),
		zap.Int("total_attempts", snap.Stats.TotalAttempts),
		zap.Int("successful_heals", snap.Stats.SuccessfulHeals),
		zap.String("healing_success_rate", snap.Stats.HealingSuccessRate))
	return nil
}

// LoadSnapshot reads a previously exported snapshot. Callers use it to seed
// candidate ordering for the next session.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read learning snapshot %q: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse learning snapshot %q: %w", path, err)
	}
	if snap.WorkingFallbacks == nil {
		snap.WorkingFallbacks = make(map[string]string)
	}
	return &snap, nil
}
