// Package store implements the atomic, crash-safe persistence of a
// coordinator's full state to a single JSON file (§4.E).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	pkgerrors2 "github.com/pkg/errors"

	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/merkleclock"
	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/workflow"
	"github.com/endomorphosis/ipfs-kit-py-sub032/pkg/errors"
	"github.com/endomorphosis/ipfs-kit-py-sub032/pkg/log"
)

// Snapshot is the full on-disk image of a coordinator's state, matching
// the bit-exact schema in §6.
type Snapshot struct {
	PeerID      string                     `json:"peer_id"`
	PeerList    []string                   `json:"peer_list"`
	MerkleClock merkleclock.Snapshot       `json:"merkle_clock"`
	Workflows   map[string]workflow.Record `json:"workflows"`
	SavedAt     float64                    `json:"saved_at"`
}

// Store persists and loads Snapshots under a configured data directory.
type Store struct {
	dataDir string
}

// New returns a Store rooted at dataDir, creating the directory if
// necessary.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.NewError().
			WithCode(errors.CodePersistenceFailed).
			WithMessage("failed to create data directory").
			WithError(pkgerrors2.Wrap(err, "MkdirAll"))
	}
	return &Store{dataDir: dataDir}, nil
}

// fileName returns the canonical snapshot filename for peerID.
func fileName(peerID string) string {
	return fmt.Sprintf("coordinator_state_%s.json", peerID)
}

// Path returns the absolute path of peerID's snapshot file.
func (s *Store) Path(peerID string) string {
	return filepath.Join(s.dataDir, fileName(peerID))
}

// Save writes snap using the tmp-file + fsync + rename + fsync-dir
// protocol from §4.E, so a crash at any point leaves either the prior or
// the new file intact.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return errors.NewError().
			WithCode(errors.CodePersistenceFailed).
			WithMessage("save budget exceeded").
			WithError(err)
	}

	final := s.Path(snap.PeerID)
	tmp := final + ".tmp"

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.NewError().
			WithCode(errors.CodePersistenceFailed).
			WithMessage("failed to marshal snapshot").
			WithError(pkgerrors2.Wrap(err, "MarshalIndent"))
	}

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.NewError().
			WithCode(errors.CodePersistenceFailed).
			WithMessage("failed to open temp snapshot file").
			WithError(pkgerrors2.Wrap(err, "OpenFile"))
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.NewError().
			WithCode(errors.CodePersistenceFailed).
			WithMessage("failed to write temp snapshot file").
			WithError(pkgerrors2.Wrap(err, "Write"))
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.NewError().
			WithCode(errors.CodePersistenceFailed).
			WithMessage("failed to fsync temp snapshot file").
			WithError(pkgerrors2.Wrap(err, "Sync"))
	}
	if err := f.Close(); err != nil {
		return errors.NewError().
			WithCode(errors.CodePersistenceFailed).
			WithMessage("failed to close temp snapshot file").
			WithError(pkgerrors2.Wrap(err, "Close"))
	}

	if ctx.Err() != nil {
		return errors.NewError().
			WithCode(errors.CodePersistenceFailed).
			WithMessage("save budget exceeded before rename").
			WithError(ctx.Err())
	}

	if err := os.Rename(tmp, final); err != nil {
		return errors.NewError().
			WithCode(errors.CodePersistenceFailed).
			WithMessage("failed to rename temp snapshot file into place").
			WithError(pkgerrors2.Wrap(err, "Rename"))
	}

	dir, err := os.Open(s.dataDir)
	if err != nil {
		return errors.NewError().
			WithCode(errors.CodePersistenceFailed).
			WithMessage("failed to open data directory for fsync").
			WithError(pkgerrors2.Wrap(err, "Open"))
	}
	defer dir.Close()
	if err := dir.Sync(); err != nil {
		return errors.NewError().
			WithCode(errors.CodePersistenceFailed).
			WithMessage("failed to fsync data directory").
			WithError(pkgerrors2.Wrap(err, "Sync"))
	}

	return nil
}

// Load reads peerID's snapshot file. found is false if no file exists yet
// (startup with an empty state, per §4.E); a malformed file is
// SnapshotCorrupt and is never silently truncated.
func (s *Store) Load(peerID string) (snap *Snapshot, found bool, err error) {
	data, err := os.ReadFile(s.Path(peerID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.NewError().
			WithCode(errors.CodePersistenceFailed).
			WithMessage("failed to read snapshot file").
			WithError(pkgerrors2.Wrap(err, "ReadFile"))
	}

	var out Snapshot
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, true, errors.NewError().
			WithCode(errors.CodeSnapshotCorrupt).
			WithMessage("snapshot file is not valid JSON").
			WithError(pkgerrors2.Wrap(err, "Unmarshal"))
	}
	return &out, true, nil
}

// WatchExternalChanges watches the data directory for out-of-band
// modifications to peerID's snapshot file (e.g. an operator replacing it
// for recovery) and invokes onChange when one is observed. It runs until
// ctx is cancelled. This supplements §4.E; it is not required for normal
// operation, which always writes its own snapshots.
func (s *Store) WatchExternalChanges(ctx context.Context, peerID string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewError().
			WithCode(errors.CodeInitializeError).
			WithMessage("failed to create snapshot watcher").
			WithError(pkgerrors2.Wrap(err, "fsnotify.NewWatcher"))
	}
	if err := watcher.Add(s.dataDir); err != nil {
		watcher.Close()
		return errors.NewError().
			WithCode(errors.CodeInitializeError).
			WithMessage("failed to watch data directory").
			WithError(pkgerrors2.Wrap(err, "Add"))
	}

	target := s.Path(peerID)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name == target && (event.Op&(fsnotify.Write|fsnotify.Create) != 0) {
					onChange()
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("snapshot watcher error: %v", werr)
			}
		}
	}()
	return nil
}
