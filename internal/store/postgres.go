package store

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/NexGen-Innovators-co/studdyhub-repo-sub000/internal/models"
)

// previewLen caps the last-message and resource content previews.
const previewLen = 280

// ChatStore handles PostgreSQL database operations.
type ChatStore struct {
	pool *pgxpool.Pool
}

// NewChatStore creates a new PostgreSQL store with a connection pool.
func NewChatStore(ctx context.Context, databaseURL string) (*ChatStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &ChatStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *ChatStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *ChatStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// SendMessage persists a new message with its media and resource links.
func (s *ChatStore) SendMessage(ctx context.Context, req SendRequest) (*models.ChatMessage, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	msg := &models.ChatMessage{Delivery: models.DeliveryConfirmed}
	err = tx.QueryRow(ctx, `
		INSERT INTO chat_messages (id, client_id, session_id, sender_id, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, client_id, session_id, sender_id, content, created_at, updated_at, is_edited, is_read
	`, ulid.Make().String(), req.ClientID, req.SessionID, req.SenderID, req.Content).Scan(
		&msg.ID,
		&msg.ClientID,
		&msg.SessionID,
		&msg.SenderID,
		&msg.Content,
		&msg.CreatedAt,
		&msg.UpdatedAt,
		&msg.IsEdited,
		&msg.IsRead,
	)
	if err != nil {
		return nil, err
	}

	for _, m := range req.Media {
		_, err = tx.Exec(ctx, `
			INSERT INTO message_media (id, message_id, url, mime_type, file_name)
			VALUES ($1, $2, $3, $4, $5)
		`, m.ID, msg.ID, m.URL, m.MimeType, m.FileName)
		if err != nil {
			return nil, err
		}
	}
	for _, r := range req.Resources {
		_, err = tx.Exec(ctx, `
			INSERT INTO message_resources (message_id, resource_id, resource_type)
			VALUES ($1, $2, $3)
		`, msg.ID, r.ResourceID, r.ResourceType)
		if err != nil {
			return nil, err
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE chat_sessions SET last_active_at = NOW() WHERE id = $1
	`, req.SessionID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	msg.Media = req.Media
	msg.Resources = req.Resources
	return msg, nil
}

// EditMessage replaces a message's content and marks it edited.
func (s *ChatStore) EditMessage(ctx context.Context, messageID string, content string) (*models.ChatMessage, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE chat_messages
		SET content = $2, is_edited = TRUE, updated_at = NOW()
		WHERE id = $1
	`, messageID, content)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
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
func (s *ChatStore) DeleteMessage(ctx context.Context, messageID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM chat_messages WHERE id = $1`, messageID)
	return err
}

// FetchRecentMessages loads the newest messages of a session, oldest first.
func (s *ChatStore) FetchRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.client_id, m.session_id, m.sender_id, p.display_name,
		       m.content, m.created_at, m.updated_at, m.is_edited, m.is_read
		FROM chat_messages m
		JOIN profiles p ON p.id = m.sender_id
		WHERE m.session_id = $1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	// Newest-first from the query; timeline wants oldest first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// FetchMessagesBatch loads full message rows with sender info for a batch of ids.
func (s *ChatStore) FetchMessagesBatch(ctx context.Context, ids []string) ([]models.ChatMessage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.client_id, m.session_id, m.sender_id, p.display_name,
		       m.content, m.created_at, m.updated_at, m.is_edited, m.is_read
		FROM chat_messages m
		JOIN profiles p ON p.id = m.sender_id
		WHERE m.id = ANY($1)
		ORDER BY m.created_at, m.id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	for rows.Next() {
		msg := models.ChatMessage{Delivery: models.DeliveryConfirmed}
		err := rows.Scan(
			&msg.ID,
			&msg.ClientID,
			&msg.SessionID,
			&msg.SenderID,
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
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// FetchMediaForMessages loads media rows for a batch of message ids, grouped by message.
func (s *ChatStore) FetchMediaForMessages(ctx context.Context, ids []string) (map[string][]models.MediaRef, error) {
	if len(ids) == 0 {
		return map[string][]models.MediaRef{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT message_id, id, url, mime_type, file_name
		FROM message_media
		WHERE message_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	media := map[string][]models.MediaRef{}
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
func (s *ChatStore) FetchResourceLinks(ctx context.Context, ids []string) (map[string][]models.ResourceRef, error) {
	if len(ids) == 0 {
		return map[string][]models.ResourceRef{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT message_id, resource_id, resource_type
		FROM message_resources
		WHERE message_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := map[string][]models.ResourceRef{}
	for rows.Next() {
		var msgID string
		var ref models.ResourceRef
		if err := rows.Scan(&msgID, &ref.ResourceID, &ref.ResourceType); err != nil {
			return nil, err
		}
		links[msgID] = append(links[msgID], ref)
	}
	return links, rows.Err()
}

// MarkSessionRead marks every message another party sent in the session as read.
func (s *ChatStore) MarkSessionRead(ctx context.Context, sessionID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE chat_messages
		SET is_read = TRUE
		WHERE session_id = $1 AND sender_id <> $2 AND is_read = FALSE
	`, sessionID, userID)
	return err
}

// FetchSessionsForUser lists direct sessions matching the user on either
// side plus the user's group sessions, with unread counts and previews.
func (s *ChatStore) FetchSessionsForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT cs.id, cs.type, cs.participant_a, cs.participant_b, cs.group_id, cs.last_active_at,
		       COALESCE((
		           SELECT m.content FROM chat_messages m
		           WHERE m.session_id = cs.id
		           ORDER BY m.created_at DESC, m.id DESC LIMIT 1
		       ), ''),
		       (
		           SELECT COUNT(*) FROM chat_messages m
		           WHERE m.session_id = cs.id AND m.sender_id <> $1 AND m.is_read = FALSE
		       )
		FROM chat_sessions cs
		WHERE (cs.type = 'direct' AND (cs.participant_a = $1 OR cs.participant_b = $1))
		   OR (cs.type = 'group' AND cs.group_id IN (
		           SELECT group_id FROM group_members WHERE user_id = $1
		       ))
		ORDER BY cs.last_active_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ChatSession
	for rows.Next() {
		var sess models.ChatSession
		var participantA, participantB *uuid.UUID
		err := rows.Scan(
			&sess.ID,
			&sess.Type,
			&participantA,
			&participantB,
			&sess.GroupID,
			&sess.LastActiveAt,
			&sess.LastMessage,
			&sess.UnreadCount,
		)
		if err != nil {
			return nil, err
		}
		if participantA != nil {
			sess.ParticipantA = *participantA
		}
		if participantB != nil {
			sess.ParticipantB = *participantB
		}
		sess.LastMessage = truncatePreview(sess.LastMessage)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// ResolveNote retrieves a note referent.
func (s *ChatStore) ResolveNote(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error) {
	rec := &models.ResourceRecord{}
	var content string
	err := s.pool.QueryRow(ctx, `
		SELECT title, content, COALESCE(file_path, '')
		FROM notes WHERE id = $1
	`, id).Scan(&rec.Title, &content, &rec.StoragePath)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.Preview = truncatePreview(content)
	rec.ExtractedText = content
	return rec, nil
}

// ResolveDocument retrieves a document referent.
func (s *ChatStore) ResolveDocument(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error) {
	rec := &models.ResourceRecord{}
	err := s.pool.QueryRow(ctx, `
		SELECT title, COALESCE(file_path, ''), COALESCE(content_type, ''), COALESCE(extracted_text, '')
		FROM documents WHERE id = $1
	`, id).Scan(&rec.Title, &rec.StoragePath, &rec.ContentType, &rec.ExtractedText)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.Preview = truncatePreview(rec.ExtractedText)
	return rec, nil
}

// ResolveRecording retrieves a class recording referent.
func (s *ChatStore) ResolveRecording(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error) {
	rec := &models.ResourceRecord{}
	var summary string
	err := s.pool.QueryRow(ctx, `
		SELECT title, COALESCE(summary, ''), COALESCE(audio_path, '')
		FROM class_recordings WHERE id = $1
	`, id).Scan(&rec.Title, &summary, &rec.StoragePath)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.Preview = truncatePreview(summary)
	return rec, nil
}

// ResolvePost retrieves a post referent.
func (s *ChatStore) ResolvePost(ctx context.Context, id uuid.UUID) (*models.ResourceRecord, error) {
	rec := &models.ResourceRecord{}
	var content string
	err := s.pool.QueryRow(ctx, `
		SELECT p.content, COALESCE(p.image_url, ''), pr.display_name
		FROM posts p
		JOIN profiles pr ON pr.id = p.author_id
		WHERE p.id = $1
	`, id).Scan(&content, &rec.StoragePath, &rec.Title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.Preview = truncatePreview(content)
	return rec, nil
}

// truncatePreview cuts on a rune boundary so a multi-byte character is
// never split mid-sequence.
func truncatePreview(s string) string {
	if len(s) <= previewLen {
		return s
	}
	cut := previewLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Interface checks
var (
	_ MessageBackend  = (*ChatStore)(nil)
	_ SessionBackend  = (*ChatStore)(nil)
	_ ResourceBackend = (*ChatStore)(nil)
)
