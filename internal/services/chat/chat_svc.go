package chat

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

type ParticipantDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logo_url"`
}

type ConversationDTO struct {
	ID              string           `json:"id"`
	Participants    []ParticipantDTO `json:"participants"`
	LastMessageText string           `json:"last_message_text"`
	LastMessageAt   *time.Time       `json:"last_message_at"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type MessageDTO struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	ReadBy         []string  `json:"read_by"`
}

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrCompanyNotFound      = errors.New("company not found")
	ErrNotParticipant       = errors.New("sender is not a participant")
	ErrTooFewParticipants   = errors.New("a conversation needs at least two participants")
)

// IChatService is the durable-store collaborator: plain request/response
// reads and writes against Postgres. Live notification is layered on top by
// the fan-out coordinator, strictly after a write here has committed.
type IChatService interface {
	CreateConversation(ctx context.Context, participantIDs []string) (*ConversationDTO, error)
	ListConversations(ctx context.Context, companyID string) ([]ConversationDTO, error)
	// CreateMessage returns the stored message plus the conversation's
	// participant ids, which the caller needs for fan-out.
	CreateMessage(ctx context.Context, conversationID, senderID, content string) (*MessageDTO, []string, error)
	ListMessages(ctx context.Context, conversationID string) ([]MessageDTO, error)
	// MarkMessageRead returns the id of the conversation owning the message.
	MarkMessageRead(ctx context.Context, messageID, companyID string) (string, error)
}

type chatService struct {
	db *sql.DB
}

func NewChatService(db *sql.DB) IChatService {
	return &chatService{db: db}
}

func (svc *chatService) CreateConversation(ctx context.Context, participantIDs []string) (*ConversationDTO, error) {
	if len(participantIDs) < 2 {
		return nil, ErrTooFewParticipants
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id := uuid.NewString()
	dto := &ConversationDTO{ID: id}

	const insConv = `
	  INSERT INTO conversations (id, created_at, updated_at)
	       VALUES ($1, now(), now())
	    RETURNING created_at, updated_at`
	if err := tx.QueryRowContext(ctx, insConv, id).Scan(&dto.CreatedAt, &dto.UpdatedAt); err != nil {
		return nil, err
	}

	const insPart = `
	  INSERT INTO conversation_participants (conversation_id, company_id)
	       VALUES ($1, $2)`
	const selCompany = `SELECT name, coalesce(logo_url, '') FROM companies WHERE id = $1`

	for _, pid := range participantIDs {
		var p ParticipantDTO
		p.ID = pid
		if err := tx.QueryRowContext(ctx, selCompany, pid).Scan(&p.Name, &p.LogoURL); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrCompanyNotFound
			}
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, insPart, id, pid); err != nil {
			return nil, err
		}
		dto.Participants = append(dto.Participants, p)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return dto, nil
}

func (svc *chatService) ListConversations(ctx context.Context, companyID string) ([]ConversationDTO, error) {
	// One row per (conversation, participant); grouped back in Go so a
	// single round-trip serves the whole list.
	const q = `
	  SELECT c.id, coalesce(c.last_message_text, ''), c.last_message_at,
	         c.created_at, c.updated_at,
	         p.company_id, co.name, coalesce(co.logo_url, '')
	    FROM conversations c
	    JOIN conversation_participants me
	      ON me.conversation_id = c.id AND me.company_id = $1
	    JOIN conversation_participants p  ON p.conversation_id = c.id
	    JOIN companies co                 ON co.id = p.company_id
	ORDER BY c.updated_at DESC, c.id, co.id`

	rows, err := svc.db.QueryContext(ctx, q, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]ConversationDTO, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			dto    ConversationDTO
			lastAt sql.NullTime
			part   ParticipantDTO
		)
		if err := rows.Scan(&dto.ID, &dto.LastMessageText, &lastAt,
			&dto.CreatedAt, &dto.UpdatedAt,
			&part.ID, &part.Name, &part.LogoURL); err != nil {
			return nil, err
		}
		i, ok := index[dto.ID]
		if !ok {
			if lastAt.Valid {
				at := lastAt.Time
				dto.LastMessageAt = &at
			}
			index[dto.ID] = len(list)
			i = len(list)
			list = append(list, dto)
		}
		list[i].Participants = append(list[i].Participants, part)
	}
	return list, rows.Err()
}

func (svc *chatService) CreateMessage(ctx context.Context, conversationID, senderID, content string) (*MessageDTO, []string, error) {
	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	// Participant check doubles as the existence check: a conversation row
	// always has at least two participant rows.
	const selParts = `SELECT company_id FROM conversation_participants WHERE conversation_id = $1`
	rows, err := tx.QueryContext(ctx, selParts, conversationID)
	if err != nil {
		return nil, nil, err
	}
	var participants []string
	isParticipant := false
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			rows.Close()
			return nil, nil, err
		}
		participants = append(participants, pid)
		if pid == senderID {
			isParticipant = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(participants) == 0 {
		return nil, nil, ErrConversationNotFound
	}
	if !isParticipant {
		return nil, nil, ErrNotParticipant
	}

	msg := &MessageDTO{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		ReadBy:         []string{},
	}

	const insMsg = `
	  INSERT INTO messages (id, conversation_id, sender_id, content, created_at)
	       VALUES ($1, $2, $3, $4, now())
	    RETURNING created_at`
	if err := tx.QueryRowContext(ctx, insMsg,
		msg.ID, conversationID, senderID, content).Scan(&msg.CreatedAt); err != nil {
		return nil, nil, err
	}

	// Keep the conversation-list preview in the same transaction as the
	// message row: observers never see one without the other.
	const updPreview = `
	  UPDATE conversations
	     SET last_message_text = $1, last_message_at = $2, updated_at = $2
	   WHERE id = $3`
	if _, err := tx.ExecContext(ctx, updPreview, content, msg.CreatedAt, conversationID); err != nil {
		return nil, nil, err
	}

	const selName = `SELECT name FROM companies WHERE id = $1`
	if err := tx.QueryRowContext(ctx, selName, senderID).Scan(&msg.SenderName); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return msg, participants, nil
}

func (svc *chatService) ListMessages(ctx context.Context, conversationID string) ([]MessageDTO, error) {
	const q = `
	  SELECT m.id, m.sender_id, co.name, m.content, m.created_at
	    FROM messages m
	    JOIN companies co ON co.id = m.sender_id
	   WHERE m.conversation_id = $1
	ORDER BY m.created_at ASC`

	rows, err := svc.db.QueryContext(ctx, q, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]MessageDTO, 0)
	index := make(map[string]int)
	for rows.Next() {
		var m MessageDTO
		m.ConversationID = conversationID
		m.ReadBy = []string{}
		if err := rows.Scan(&m.ID, &m.SenderID, &m.SenderName, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		index[m.ID] = len(list)
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const qReads = `
	  SELECT r.message_id, r.company_id
	    FROM message_reads r
	    JOIN messages m ON m.id = r.message_id
	   WHERE m.conversation_id = $1`
	readRows, err := svc.db.QueryContext(ctx, qReads, conversationID)
	if err != nil {
		return nil, err
	}
	defer readRows.Close()

	for readRows.Next() {
		var msgID, companyID string
		if err := readRows.Scan(&msgID, &companyID); err != nil {
			return nil, err
		}
		if i, ok := index[msgID]; ok {
			list[i].ReadBy = append(list[i].ReadBy, companyID)
		}
	}
	return list, readRows.Err()
}

func (svc *chatService) MarkMessageRead(ctx context.Context, messageID, companyID string) (string, error) {
	var conversationID string
	const sel = `SELECT conversation_id FROM messages WHERE id = $1`
	if err := svc.db.QueryRowContext(ctx, sel, messageID).Scan(&conversationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrMessageNotFound
		}
		return "", err
	}

	// Idempotent: re-reading an already-read message is a no-op.
	const ins = `
	  INSERT INTO message_reads (message_id, company_id)
	       VALUES ($1, $2)
	  ON CONFLICT DO NOTHING`
	if _, err := svc.db.ExecContext(ctx, ins, messageID, companyID); err != nil {
		return "", err
	}
	return conversationID, nil
}
