package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kotche/notes/infrastructure/tracing"
	"github.com/kotche/notes/internal/model"
	_ "github.com/lib/pq"

	"github.com/Masterminds/squirrel"
)

var noteColumns = []string{
	"id",
	"user_id",
	"content",
	"created_at",
	"notification_time",
	"notification_sent",
}

type DefaultRepository struct {
	db *sql.DB
}

func NewDefaultRepository(pg *sql.DB) *DefaultRepository {
	return &DefaultRepository{pg}
}

func (d *DefaultRepository) CreateNote(ctx context.Context, note model.Note) (model.Note, error) {
	ctx, span := tracing.StartSpan(ctx, "CreateNote_repo")
	defer span.End()

	query, args, err := squirrel.
		Insert("notes").
		Columns("user_id", "content", "notification_time", "notification_sent").
		Values(note.UserID, note.Content, note.NotificationTime, false).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return model.Note{}, fmt.Errorf("failed to build query: %w", err)
	}

	if err = d.db.QueryRowContext(ctx, query, args...).Scan(&note.ID, &note.CreatedAt); err != nil {
		return model.Note{}, fmt.Errorf("failed to create note: %w", err)
	}
	note.NotificationSent = false

	return note, nil
}

func (d *DefaultRepository) NoteExists(ctx context.Context, noteID model.NoteID, userID model.UserID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM notes WHERE id = $1 AND user_id = $2)`
	err := d.db.QueryRowContext(ctx, query, noteID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to get note '%d' for user '%s' exists: %w", noteID, userID, err)
	}
	return exists, nil
}

func (d *DefaultRepository) GetNote(ctx context.Context, noteID model.NoteID, userID model.UserID) (*model.Note, error) {
	query, args, err := squirrel.
		Select(noteColumns...).
		From("notes").
		Where(squirrel.Eq{"id": noteID, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	note, err := scanNote(d.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to get note '%d' for user '%s': %w", noteID, userID, err)
	}
	return &note, nil
}

// DeleteNote removes the row for good; there is no soft delete.
func (d *DefaultRepository) DeleteNote(ctx context.Context, noteID model.NoteID, userID model.UserID) error {
	query := `DELETE FROM notes WHERE id = $1 AND user_id = $2`

	res, err := d.db.ExecContext(ctx, query, noteID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete note %d for user %s: %w", noteID, userID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete note %d for user %s: %w", noteID, userID, err)
	}
	if affected == 0 {
		return model.ErrNoteNotFound
	}

	return nil
}

func (d *DefaultRepository) ListNotes(ctx context.Context, userID model.UserID) ([]model.Note, error) {
	ctx, span := tracing.StartSpan(ctx, "ListNotes_repo")
	defer span.End()

	query, args, err := squirrel.
		Select(noteColumns...).
		From("notes").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return d.queryNotes(ctx, query, args...)
}

// ListPendingReminders returns every note across users that still owes a
// notification, earliest first.
func (d *DefaultRepository) ListPendingReminders(ctx context.Context) ([]model.Note, error) {
	ctx, span := tracing.StartSpan(ctx, "ListPendingReminders_repo")
	defer span.End()

	query, args, err := squirrel.
		Select(noteColumns...).
		From("notes").
		Where("notification_time IS NOT NULL").
		Where(squirrel.Eq{"notification_sent": false}).
		OrderBy("notification_time").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return d.queryNotes(ctx, query, args...)
}

// MarkNotificationSent only ever moves the flag to true.
func (d *DefaultRepository) MarkNotificationSent(ctx context.Context, noteID model.NoteID) error {
	query := `UPDATE notes SET notification_sent = TRUE WHERE id = $1 AND notification_sent = FALSE`

	if _, err := d.db.ExecContext(ctx, query, noteID); err != nil {
		return fmt.Errorf("failed to mark note %d as sent: %w", noteID, err)
	}

	return nil
}

func (d *DefaultRepository) queryNotes(ctx context.Context, query string, args ...interface{}) ([]model.Note, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}

	return notes, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(row scanner) (model.Note, error) {
	var note model.Note
	err := row.Scan(
		&note.ID,
		&note.UserID,
		&note.Content,
		&note.CreatedAt,
		&note.NotificationTime,
		&note.NotificationSent,
	)
	return note, err
}
