package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/t77yq/deadline-bot/internal/model"
)

// legacyTimeLayout is an ISO-8601 timestamp without zone, read in local time
const legacyTimeLayout = "2006-01-02T15:04:05"

// snapshotEntry is the on-disk form of a deadline record
type snapshotEntry struct {
	Deadline string          `json:"deadline"`
	Created  string          `json:"created"`
	Message  json.RawMessage `json:"message"`
}

// SnapshotStore keeps every deadline in a single JSON file that is fully
// rewritten on each save
type SnapshotStore struct {
	logger *zap.Logger
	fs     afero.Fs
	path   string
}

// NewSnapshotStore creates a snapshot store for the file at path
func NewSnapshotStore(fs afero.Fs, path string, logger *zap.Logger) *SnapshotStore {
	return &SnapshotStore{
		logger: logger.Named("snapshot"),
		fs:     fs,
		path:   path,
	}
}

// Load implements scheduler.Store.Load. A missing snapshot is created empty.
func (s *SnapshotStore) Load(ctx context.Context) (map[string]model.DeadlineRecord, error) {
	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}
	if !exists {
		if err := s.write([]byte("{}")); err != nil {
			return nil, err
		}
		s.logger.Info("Created empty snapshot", zap.String("path", s.path))
		return make(map[string]model.DeadlineRecord), nil
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var entries map[string]snapshotEntry
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot: %w", err)
		}
	}

	records := make(map[string]model.DeadlineRecord, len(entries))
	for channelID, entry := range entries {
		record, err := entry.record(channelID)
		if err != nil {
			return nil, fmt.Errorf("invalid snapshot entry for channel %s: %w", channelID, err)
		}
		records[channelID] = record
	}

	return records, nil
}

// Save implements scheduler.Store.Save
func (s *SnapshotStore) Save(ctx context.Context, records map[string]model.DeadlineRecord) error {
	entries := make(map[string]snapshotEntry, len(records))
	for channelID, record := range records {
		message, err := json.Marshal(record.StatusMessageID)
		if err != nil {
			return fmt.Errorf("failed to encode message id: %w", err)
		}
		entries[channelID] = snapshotEntry{
			Deadline: record.TargetTime.Format(time.RFC3339Nano),
			Created:  record.CreatedTime.Format(time.RFC3339Nano),
			Message:  message,
		}
	}

	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := s.write(data); err != nil {
		return err
	}

	s.logger.Debug("Saved snapshot",
		zap.String("path", s.path),
		zap.Int("records", len(records)))
	return nil
}

// write replaces the snapshot through a temporary file and rename
func (s *SnapshotStore) write(data []byte) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func (e snapshotEntry) record(channelID string) (model.DeadlineRecord, error) {
	target, err := parseTimestamp(e.Deadline)
	if err != nil {
		return model.DeadlineRecord{}, fmt.Errorf("deadline: %w", err)
	}
	created, err := parseTimestamp(e.Created)
	if err != nil {
		return model.DeadlineRecord{}, fmt.Errorf("created: %w", err)
	}
	messageID, err := parseMessageID(e.Message)
	if err != nil {
		return model.DeadlineRecord{}, fmt.Errorf("message: %w", err)
	}

	return model.DeadlineRecord{
		ChannelID:       channelID,
		TargetTime:      target,
		CreatedTime:     created,
		StatusMessageID: messageID,
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation(legacyTimeLayout, value, time.Local)
}

// parseMessageID accepts both string and integer message IDs
func parseMessageID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("missing message id")
	}

	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("unsupported message id %s", string(raw))
	}
	if _, err := strconv.ParseUint(n.String(), 10, 64); err != nil {
		return "", fmt.Errorf("unsupported message id %s", n.String())
	}
	return n.String(), nil
}
