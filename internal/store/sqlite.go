package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/pelusa-v/geochat/internal/chat"
)

// maxPageSize caps one history page; callers asking for more get 30.
const maxPageSize = 30

// SQLite persists the append-only message log of every room.
type SQLite struct {
	db *sql.DB
}

// Open prepares a SQLite database at the given path and ensures the
// schema exists.
func Open(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.WithMessage(err, "ensure db directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WithMessage(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, errors.WithMessage(err, "configure sqlite")
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			user_name TEXT NOT NULL,
			avatar_seed TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			country_code TEXT NOT NULL DEFAULT '',
			is_recalled INTEGER NOT NULL DEFAULT 0,
			is_gm INTEGER NOT NULL DEFAULT 0,
			reply_user TEXT,
			reply_content TEXT,
			voice_duration REAL NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room_ts ON messages(room_id, ts DESC, id DESC);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return errors.WithMessage(err, "apply schema")
		}
	}
	return nil
}

// Close releases database resources.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Insert appends one message row. Inserting an id twice is an error;
// the log is append-only.
func (s *SQLite) Insert(ctx context.Context, room string, m chat.Message) error {
	var replyUser, replyContent sql.NullString
	if m.ReplyTo != nil {
		replyUser = sql.NullString{String: m.ReplyTo.UserName, Valid: true}
		replyContent = sql.NullString{String: m.ReplyTo.Content, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages
			(id, room_id, user_id, user_name, avatar_seed, content, ts, type,
			 country_code, is_recalled, is_gm, reply_user, reply_content, voice_duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, room, m.UserID, m.UserName, m.AvatarSeed, m.Content, m.Timestamp,
		string(m.Type), m.CountryCode, boolInt(m.IsRecalled), boolInt(m.IsGM),
		replyUser, replyContent, m.VoiceDuration)
	return errors.WithMessage(err, "insert message")
}

// PageBefore returns up to limit messages of the room strictly older
// than the before cursor (epoch ms), newest first. before <= 0 means
// "from the live edge".
func (s *SQLite) PageBefore(ctx context.Context, room string, before int64, limit int) ([]chat.Message, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	query := `SELECT ` + messageColumns + ` FROM messages WHERE room_id = ?`
	args := []any{room}
	if before > 0 {
		query += ` AND ts < ?`
		args = append(args, before)
	}
	query += ` ORDER BY ts DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WithMessage(err, "page before")
	}
	defer rows.Close()
	return scanMessages(rows)
}

// PageAfter returns up to limit messages strictly newer than the after
// cursor, oldest first. Used by climbing mode's forward traversal;
// after <= 0 starts from the room's oldest message.
func (s *SQLite) PageAfter(ctx context.Context, room string, after int64, limit int) ([]chat.Message, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	query := `SELECT ` + messageColumns + ` FROM messages WHERE room_id = ?`
	args := []any{room}
	if after > 0 {
		query += ` AND ts > ?`
		args = append(args, after)
	}
	query += ` ORDER BY ts ASC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WithMessage(err, "page after")
	}
	defer rows.Close()
	return scanMessages(rows)
}

// MarkRecalled soft-deletes a message; the row and its content stay.
func (s *SQLite) MarkRecalled(ctx context.Context, room, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET is_recalled = 1 WHERE room_id = ? AND id = ?`, room, id)
	if err != nil {
		return errors.WithMessage(err, "mark recalled")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Errorf("message %s not found in room %s", id, room)
	}
	return nil
}

// Delete hard-removes a row. Admin moderation only; absence propagates
// to clients on their next page fetch.
func (s *SQLite) Delete(ctx context.Context, room, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE room_id = ? AND id = ?`, room, id)
	return errors.WithMessage(err, "delete message")
}

const messageColumns = `id, user_id, user_name, avatar_seed, content, ts, type,
	country_code, is_recalled, is_gm, reply_user, reply_content, voice_duration`

func scanMessages(rows *sql.Rows) ([]chat.Message, error) {
	var out []chat.Message
	for rows.Next() {
		var (
			m                       chat.Message
			typ                     string
			recalled, gm            int
			replyUser, replyContent sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.UserName, &m.AvatarSeed,
			&m.Content, &m.Timestamp, &typ, &m.CountryCode, &recalled, &gm,
			&replyUser, &replyContent, &m.VoiceDuration); err != nil {
			return nil, errors.WithMessage(err, "scan message")
		}
		m.Type = chat.MessageType(typ)
		m.IsRecalled = recalled != 0
		m.IsGM = gm != 0
		if replyUser.Valid {
			m.ReplyTo = &chat.ReplyRef{UserName: replyUser.String, Content: replyContent.String}
		}
		out = append(out, m)
	}
	return out, errors.WithMessage(rows.Err(), "iterate messages")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// IsSchemaMismatch classifies persistence errors whose only fix is a
// backend schema migration. These are the one class of send failures
// surfaced to the user instead of being swallowed.
func IsSchemaMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "has no column named") ||
		strings.Contains(msg, "missing column")
}
