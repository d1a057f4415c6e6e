package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/models"
)

// SQLiteStore handles SQLite database operations. It implements the same
// backend interfaces as ChatStore and is used for development and tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/chatsync.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chatsync.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		participant_a TEXT,
		participant_b TEXT,
		group_id TEXT,
		last_active_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS group_members (
		group_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		PRIMARY KEY (group_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		content TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		is_edited INTEGER DEFAULT 0,
		is_read INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS message_media (
		id TEXT PRIMARY KEY,
		message_id TEXT NOT NULL,
		url TEXT NOT NULL,
		mime_type TEXT NOT NULL DEFAULT '',
		file_name TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS message_resources (
		message_id TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		PRIMARY KEY (message_id, resource_id)
	);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		file_path TEXT
	);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		file_path TEXT,
		content_type TEXT,
		extracted_text TEXT
	);

	CREATE TABLE IF NOT EXISTS class_recordings (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		summary TEXT,
		audio_path TEXT
	);

	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		image_url TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session ON chat_messages(session_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_unread ON chat_messages(session_id, is_read);
	CREATE INDEX IF NOT EXISTS idx_media_message ON message_media(message_id);
	CREATE INDEX IF NOT EXISTS idx_resources_message ON message_resources(message_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SendMessage persists a new message with its media and resource links.
func (s *SQLiteStore) SendMessage(ctx context.Context, req SendRequest) (*models.ChatMessage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id := ulid.Make().String()
	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_messages (id, client_id, session_id, sender_id, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, req.ClientID, req.SessionID.String(), req.SenderID.String(), req.Content, now, now)
	if err != nil {
		return nil, err
	}

	for _, m := range req.Media {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO message_media (id, message_id, url, mime_type, file_name)
			VALUES (?, ?, ?, ?, ?)
		`, m.ID, id, m.URL, m.MimeType, m.FileName)
		if err != nil {
			return nil, err
		}
	}
	for _, r := range req.Resources {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO message_resources (message_id, resource_id, resource_type)
			VALUES (?, ?, ?)
		`, id, r.ResourceID.String(), r.ResourceType)
		if err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE chat_sessions SET last_active_at = ? WHERE id = ?
	`, now, req.SessionID.String())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.ChatMessage{
		ID:        id,
		ClientID:  req.ClientID,
		SessionID: req.SessionID,
		SenderID:  req.SenderID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
		Delivery:  models.DeliveryConfirmed,
		Media:     req.Media,
		Resources: req.Resources,
	}, nil
}

// EditMessage replaces a message's content and marks it edited.
func (s *SQLiteStore) EditMessage(ctx context.Context, messageID string, content string) (*models.ChatMessage, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chat_messages
		SET content = ?, is_edited = 1, updated_at = ?
		WHERE id = ?
	`, content, time.Now().UTC(), messageID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	msgs, err := s.FetchMessagesBatch(ctx, []string{messageID})
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, ErrNotFound
	}
	return &msgs[0], nil
}

// DeleteMessage removes a message permanently.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, messageID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE id = ?`, messageID)
	return err
}

// FetchRecentMessages loads the newest messages of a session, oldest first.
func (s *SQLiteStore) FetchRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.client_id, m.session_id, m.sender_id, COALESCE(p.display_name, ''),
		       m.content, m.created_at, m.updated_at, m.is_edited, m.is_read
		FROM chat_messages m
		LEFT JOIN profiles p ON p.id = m.sender_id
		WHERE m.session_id = ?
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?
	`, sessionID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs, err := s.scanMessages(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// FetchMessagesBatch loads full message rows with sender info for a batch of ids.
func (s *SQLiteStore) FetchMessagesBatch(ctx context.Context, ids []string) ([]models.ChatMessage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT m.id, m.client_id, m.session_id, m.sender_id, COALESCE(p.display_name, ''),
		       m.content, m.created_at, m.updated_at, m.is_edited, m.is_read
		FROM chat_messages m
		LEFT JOIN profiles p ON p.id = m.sender_id
		WHERE m.id IN (` + placeholders(len(ids)) + `)
		ORDER BY m.created_at, m.id
	`
	rows, err := s.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanMessages(rows)
}

func (s *SQLiteStore) scanMessages(rows *sql.Rows) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	for rows.Next() {
		msg := models.ChatMessage{Delivery: models.DeliveryConfirmed}
		var sessionID, senderID string
		err := rows.Scan(
			&msg.ID,
			&msg.ClientID,
			&sessionID,
			&senderID,
			&msg.SenderName,
			&msg.Content,
			&msg.CreatedAt,
			&msg.UpdatedAt,
			&msg.IsEdited,
			&msg.IsRead,
		)
		if err != nil {
			return nil, err
		}
		msg.SessionID, _ = uuid.Parse(sessionID)
		msg.SenderID, _ = uuid.Parse(senderID)
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// FetchMediaForMessages loads media rows for a batch of message ids, grouped by message.
func (s *SQLiteStore) FetchMediaForMessages(ctx context.Context, ids []string) (map[string][]models.MediaRef, error) {
	media := map[string][]models.MediaRef{}
	if len(ids) == 0 {
		return media, nil
	}
	query := `
		SELECT message_id, id, url, mime_type, file_name
		FROM message_media
		WHERE message_id IN (` + placeholders(len(ids)) + `)
	`
	rows, err := s.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msgID string
		var ref models.MediaRef
		if err := rows.Scan(&msgID, &ref.ID, &ref.URL, &ref.MimeType, &ref.FileName); err != nil {
			return nil, err
		}
		media[msgID] = append(media[msgID], ref)
	}
	return media, rows.Err()
}

// FetchResourceLinks loads resource-link rows for a batch of message ids, grouped by message.
func (s *SQLiteStore) FetchResourceLinks(ctx context.Context, ids []string) (map[string][]models.ResourceRef, error) {
	links := map[string][]models.ResourceRef{}
	if len(ids) == 0 {
		return links, nil
	}
	query := `
		SELECT message_id, resource_id, resource_type
		FROM message_resources
		WHERE message_id IN (` + placeholders(len(ids)) + `)
	`
	rows, err := s.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msgID, resourceID string
		var ref models.ResourceRef
		if err := rows.Scan(&msgID, &resourceID, &ref.ResourceType); err != nil {
			return nil, err
		}
		ref.ResourceID, _ = uuid.Parse(resourceID)
		links[msgID] = append(links[msgID], ref)
	}
	return links, rows.Err()
}

// MarkSessionRead marks every message another party sent in the session as read.
func (s *SQLiteStore) MarkSessionRead(ctx context.Context, sessionID, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE chat_messages
		SET is_read = 1
		WHERE session_id = ? AND sender_id <> ? AND is_read = 0
	`, sessionID.String(), userID.String())
	return err
}

// FetchSessionsForUser lists direct and group sessions for a user with
// unread counts and last-message previews.
func (s *SQLiteStore) FetchSessionsForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cs.id, cs.type, COALESCE(cs.participant_a, ''), COALESCE(cs.participant_b, ''),
		       cs.group_id, cs.last_active_at,
		       COALESCE((
		           SELECT m.content FROM chat_messages m
		           WHERE m.session_id = cs.id
		           ORDER BY m.created_at DESC, m.id DESC LIMIT 1
		       ), ''),
		       (
		           SELECT COUNT(*) FROM chat_messages m
		           WHERE m.session_id = cs.id AND m.sender_id <> ? AND m.is_read = 0
		       )
		FROM chat_sessions cs
		WHERE (cs.type = 'direct' AND (cs.participant_a = ? OR cs.participant_b = ?))
		   OR (cs.type = 'group' AND cs.group_id IN (
		           SELECT group_id FROM group_members WHERE user_id = ?
		       ))
		ORDER BY cs.last_active_at DESC
	`, userID.String(), userID.String(), userID.String(), userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ChatSession
	for rows.Next() {
		var sess models.ChatSession
		var id, pa, pb string
		var groupID sql.NullString
		err := rows.Scan(&id, &sess.Type, &pa, &pb, &groupID, &sess.LastActiveAt, &sess.LastMessage, &sess.UnreadCount)
		if err != nil {
			return nil, err
		}
		sess.ID, _ = uuid.Parse(id)
		sess.ParticipantA, _ = uuid.Parse(pa)
		sess.ParticipantB, _ = uuid.Parse(pb)
		if groupID.Valid {
			gid, err := uuid.Parse(groupID.String)
			if err == nil {
				sess.GroupID = &gid
			}
		}
		sess.LastMessage = truncatePreview(sess.LastMessage)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// ResolveNote retrieves a note referent.
func (s *SQLiteStore) ResolveNote(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error) {
	rec := &models.ResourceRecord{}
	var content string
	err := s.db.QueryRowContext(ctx, `
		SELECT title, content, COALESCE(file_path, '') FROM notes WHERE id = ?
	`, id.String()).Scan(&rec.Title, &content, &rec.StoragePath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.Preview = truncatePreview(content)
	rec.ExtractedText = content
	return rec, nil
}

// ResolveDocument retrieves a document referent.
func (s *SQLiteStore) ResolveDocument(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error) {
	rec := &models.ResourceRecord{}
	err := s.db.QueryRowContext(ctx, `
		SELECT title, COALESCE(file_path, ''), COALESCE(content_type, ''), COALESCE(extracted_text, '')
		FROM documents WHERE id = ?
	`, id.String()).Scan(&rec.Title, &rec.StoragePath, &rec.ContentType, &rec.ExtractedText)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.Preview = truncatePreview(rec.ExtractedText)
	return rec, nil
}

// ResolveRecording retrieves a class recording referent.
func (s *SQLiteStore) ResolveRecording(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error) {
	rec := &models.ResourceRecord{}
	var summary string
	err := s.db.QueryRowContext(ctx, `
		SELECT title, COALESCE(summary, ''), COALESCE(audio_path, '')
		FROM class_recordings WHERE id = ?
	`, id.String()).Scan(&rec.Title, &summary, &rec.StoragePath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.Preview = truncatePreview(summary)
	return rec, nil
}

// ResolvePost retrieves a post referent.
func (s *SQLiteStore) ResolvePost(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error) {
	rec := &models.ResourceRecord{}
	var content string
	err := s.db.QueryRowContext(ctx, `
		SELECT p.content, COALESCE(p.image_url, ''), COALESCE(pr.display_name, '')
		FROM posts p
		LEFT JOIN profiles pr ON pr.id = p.author_id
		WHERE p.id = ?
	`, id.String()).Scan(&content, &rec.StoragePath, &rec.Title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.Preview = truncatePreview(content)
	return rec, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// Interface checks
var (
	_ MessageBackend  = (*SQLiteStore)(nil)
	_ SessionBackend  = (*SQLiteStore)(nil)
	_ ResourceBackend = (*SQLiteStore)(nil)
)
