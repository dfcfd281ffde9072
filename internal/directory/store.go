package directory

import (
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/signalbox/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sync run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// upsertBatch bounds the rows per INSERT so large workspaces stay under
// SQLite's bound-variable limit.
const upsertBatch = 200

// Store persists users, rooms and sync runs.
type Store struct {
	db *gorm.DB
}

// NewStore returns a Store over an already-migrated database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UpsertUsers inserts users or refreshes existing rows by ID.
func (s *Store) UpsertUsers(users []models.User) error {
	if len(users) == 0 {
		return nil
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "mention_name", "real_name", "is_bot", "deleted", "updated_at"}),
	}).CreateInBatches(users, upsertBatch).Error
	if err != nil {
		return fmt.Errorf("directory: upsert %d users: %w", len(users), err)
	}
	return nil
}

// UpsertRooms inserts rooms or refreshes existing rows by ID.
func (s *Store) UpsertRooms(rooms []models.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "is_private", "is_im", "is_mpim", "is_archived", "topic", "updated_at"}),
	}).CreateInBatches(rooms, upsertBatch).Error
	if err != nil {
		return fmt.Errorf("directory: upsert %d rooms: %w", len(rooms), err)
	}
	return nil
}

// User returns the stored user with the given ID. found is false when no
// row exists.
func (s *Store) User(id string) (u models.User, found bool, err error) {
	err = s.db.Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("directory: get user %s: %w", id, err)
	}
	return u, true, nil
}

// Room returns the stored room with the given ID.
func (s *Store) Room(id string) (r models.Room, found bool, err error) {
	err = s.db.Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Room{}, false, nil
	}
	if err != nil {
		return models.Room{}, false, fmt.Errorf("directory: get room %s: %w", id, err)
	}
	return r, true, nil
}

// ListUsers returns all stored users ordered by name.
func (s *Store) ListUsers() ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("name, id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("directory: list users: %w", err)
	}
	return users, nil
}

// ListRooms returns all stored rooms ordered by name.
func (s *Store) ListRooms() ([]models.Room, error) {
	var rooms []models.Room
	if err := s.db.Order("name, id").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("directory: list rooms: %w", err)
	}
	return rooms, nil
}

// FinishRun marks run as finished with the given counts, failed if runErr is
// non-nil.
func (s *Store) FinishRun(run *models.SyncRun, users, rooms int, runErr error, now time.Time) error {
	run.Users = users
	run.Rooms = rooms
	run.CompletedAt = &now
	run.Status = RunSucceeded
	run.ErrorMessage = ""
	if runErr != nil {
		run.Status = RunFailed
		run.ErrorMessage = runErr.Error()
	}
	if err := s.db.Save(run).Error; err != nil {
		return fmt.Errorf("directory: finish sync run %d: %w", run.ID, err)
	}
	return nil
}

// LastRun returns the most recent sync run, or nil if none has happened.
func (s *Store) LastRun() (*models.SyncRun, error) {
	var run models.SyncRun
	err := s.db.Order("id DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("directory: last sync run: %w", err)
	}
	return &run, nil
}

// RenameRoom sets a room's name, creating the row when the room is new.
func (s *Store) RenameRoom(id, name string, private bool, now time.Time) error {
	res := s.db.Model(&models.Room{}).Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "updated_at": now})
	if res.Error != nil {
		return fmt.Errorf("directory: rename room %s: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return s.UpsertRooms([]models.Room{{ID: id, Name: name, IsPrivate: private, UpdatedAt: now}})
}
