package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/tapedeck/internal/app/playback"
	"github.com/osa030/tapedeck/internal/domain/track"
)

// StateStore implements playback.Persister on top of a SQLite database.
type StateStore struct {
	db *sql.DB
}

// NewStateStore creates a state store. The database must be migrated.
func NewStateStore(database *sql.DB) *StateStore {
	return &StateStore{db: database}
}

// Load returns the saved state, or nil when nothing was saved yet.
func (s *StateStore) Load(ctx context.Context) (*playback.PersistedState, error) {
	var state playback.PersistedState
	err := s.db.QueryRowContext(ctx,
		"SELECT volume, queue_index FROM playback_state WHERE id = 1",
	).Scan(&state.Volume, &state.QueueIndex)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read playback state")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT track_id, name, duration_ms, art_url, album_id, album_name, album_artist
		FROM queue_entries
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read queue entries")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t           track.Track
			durationMs  int64
			albumID     sql.NullString
			albumName   sql.NullString
			albumArtist sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Name, &durationMs, &t.ArtURL, &albumID, &albumName, &albumArtist); err != nil {
			return nil, errors.Wrap(err, "failed to scan queue entry")
		}
		t.Duration = time.Duration(durationMs) * time.Millisecond
		if albumID.Valid || albumName.Valid || albumArtist.Valid {
			t.Album = &track.AlbumRef{
				ID:     albumID.String,
				Name:   albumName.String,
				Artist: albumArtist.String,
			}
		}
		state.Queue = append(state.Queue, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate queue entries")
	}

	return &state, nil
}

// Save replaces the saved state in a single transaction.
func (s *StateStore) Save(ctx context.Context, state playback.PersistedState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM queue_entries"); err != nil {
		return errors.Wrap(err, "failed to clear queue entries")
	}

	for position, t := range state.Queue {
		var albumID, albumName, albumArtist any
		if t.Album != nil {
			albumID, albumName, albumArtist = t.Album.ID, t.Album.Name, t.Album.Artist
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO queue_entries(position, track_id, name, duration_ms, art_url, album_id, album_name, album_artist)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			position,
			t.ID,
			t.Name,
			t.Duration.Milliseconds(),
			t.ArtURL,
			albumID,
			albumName,
			albumArtist,
		); err != nil {
			return errors.Wrapf(err, "failed to insert queue entry %d", position)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO playback_state(id, volume, queue_index, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			volume = excluded.volume,
			queue_index = excluded.queue_index,
			updated_at = excluded.updated_at
	`,
		state.Volume,
		state.QueueIndex,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return errors.Wrap(err, "failed to upsert playback state")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit playback state")
	}
	return nil
}
