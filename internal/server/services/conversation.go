package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/common"
	"github.com/dmitrijs2005/supportchat/internal/dbx"
	"github.com/dmitrijs2005/supportchat/internal/logging"
	"github.com/dmitrijs2005/supportchat/internal/server/config"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
	"github.com/dmitrijs2005/supportchat/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// ConversationService is the conversation ledger. A conversation and its
// messages change only inside one transaction, and a conversation's
// UpdatedAt always equals the CreatedAt of its newest message.
type ConversationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	dbTimeout   time.Duration
	logger      logging.Logger
	now         func() time.Time
}

func NewConversationService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *ConversationService {
	return &ConversationService{
		db:          db,
		repomanager: m,
		dbTimeout:   cfg.DBTimeout,
		logger:      logger.With("module", "conversations"),
		now:         time.Now,
	}
}

// CreateConversation opens a conversation with its first (user) message.
// ownerID is nil for guests.
func (s *ConversationService) CreateConversation(ctx context.Context, ownerID, guestName, guestPhone *string, initialMessage string) (*models.Conversation, *models.Message, error) {
	if strings.TrimSpace(initialMessage) == "" {
		return nil, nil, common.NewValidationError("initialMessage", "is required")
	}

	ts := s.clock()
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		UserName:  blankToNil(guestName),
		UserPhone: blankToNil(guestPhone),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Content:        initialMessage,
		IsUser:         true,
		CreatedAt:      ts,
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Conversations(tx).Create(ctx, conv); err != nil {
			return fmt.Errorf("error creating conversation: %w", err)
		}
		if err := s.repomanager.Messages(tx).Create(ctx, msg); err != nil {
			return fmt.Errorf("error creating message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info(ctx, "conversation created", "conversation_id", conv.ID, "guest", ownerID == nil)
	return conv, msg, nil
}

// AppendMessage adds a message to an existing conversation. The conversation
// row is locked for the duration, so concurrent appends are serialised and
// each message is stamped strictly after the previous one.
func (s *ConversationService) AppendMessage(ctx context.Context, conversationID, content string, isUser bool) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, common.NewValidationError("content", "is required")
	}
	if !validID(conversationID) {
		return nil, common.ErrorNotFound
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	var msg *models.Message
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		conv, err := s.repomanager.Conversations(tx).GetForUpdate(ctx, conversationID)
		if err != nil {
			return fmt.Errorf("error locking conversation: %w", err)
		}

		// Timestamps within a conversation are strictly increasing, even when
		// the clock lags, so a created_at cursor never splits a tie.
		ts := s.clock()
		if !ts.After(conv.UpdatedAt) {
			ts = conv.UpdatedAt.Add(time.Microsecond)
		}

		msg = &models.Message{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			Content:        content,
			IsUser:         isUser,
			CreatedAt:      ts,
		}
		if err := s.repomanager.Messages(tx).Create(ctx, msg); err != nil {
			return fmt.Errorf("error creating message: %w", err)
		}
		if err := s.repomanager.Conversations(tx).Touch(ctx, conv.ID, ts); err != nil {
			return fmt.Errorf("error touching conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetConversation returns common.ErrorNotFound for unknown ids.
func (s *ConversationService) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	ctx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	conv, err := s.repomanager.Conversations(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns previews ordered by latest activity. A non-nil
// ownerID limits the list to that owner's conversations.
func (s *ConversationService) ListConversations(ctx context.Context, ownerID *string) ([]*models.ConversationPreview, error) {
	if ownerID != nil && !validID(*ownerID) {
		return []*models.ConversationPreview{}, nil
	}
	ctx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	list, err := s.repomanager.Conversations(s.db).ListWithLastMessage(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing conversations: %w", err)
	}
	return list, nil
}

// ListMessages pages backwards through a conversation, newest first. A
// non-positive limit means DefaultPageLimit; limits above MaxPageLimit are
// capped. before, when set, is exclusive.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID string, limit int, before *time.Time) ([]*models.Message, error) {
	if !validID(conversationID) {
		return nil, common.ErrorNotFound
	}
	ctx, cancel := dbx.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	list, err := s.repomanager.Messages(s.db).List(ctx, conversationID, pageLimit(limit), before)
	if err != nil {
		return nil, fmt.Errorf("error listing messages: %w", err)
	}
	return list, nil
}

// clock is the ledger's notion of now, at the storage's precision.
func (s *ConversationService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func pageLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageLimit
	case limit > MaxPageLimit:
		return MaxPageLimit
	}
	return limit
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
