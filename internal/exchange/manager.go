package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/rajivgeraev/skillswap-api/internal/models"
)

// Manager управляет жизненным циклом обмена: объявление → заявка →
// решение владельца → диалог. Все проверки и изменения каждой операции
// выполняются в одной транзакции, состояние между вызовами не хранится.
type Manager struct {
	pool *pgxpool.Pool
}

// NewManager создает новый экземпляр Manager
func NewManager(pool *pgxpool.Pool) *Manager {
	return &Manager{pool: pool}
}

// cleanSkills убирает пустые элементы и лишние пробелы из списка навыков
func cleanSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// isUniqueViolation сообщает, что вставка проиграла гонку уникальному индексу
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateListing публикует новое объявление об обмене навыками
func (m *Manager) CreateListing(ctx context.Context, ownerID uuid.UUID, title, description string, skillsOffered, skillsWanted []string) (*models.Listing, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	skillsOffered = cleanSkills(skillsOffered)
	skillsWanted = cleanSkills(skillsWanted)

	if title == "" {
		return nil, fmt.Errorf("%w: название обязательно", ErrValidation)
	}
	if description == "" {
		return nil, fmt.Errorf("%w: описание обязательно", ErrValidation)
	}
	if len(skillsOffered) == 0 {
		return nil, fmt.Errorf("%w: укажите хотя бы один предлагаемый навык", ErrValidation)
	}
	if len(skillsWanted) == 0 {
		return nil, fmt.Errorf("%w: укажите хотя бы один желаемый навык", ErrValidation)
	}

	listing := &models.Listing{
		ID:            uuid.New(),
		UserID:        ownerID,
		Title:         title,
		Description:   description,
		SkillsOffered: skillsOffered,
		SkillsWanted:  skillsWanted,
		Status:        models.ListingStatusActive,
	}

	err := m.pool.QueryRow(ctx, `
        INSERT INTO listings (id, user_id, title, description, skills_offered, skills_wanted, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at
    `, listing.ID, listing.UserID, listing.Title, listing.Description,
		listing.SkillsOffered, listing.SkillsWanted, listing.Status).
		Scan(&listing.CreatedAt, &listing.UpdatedAt)

	if err != nil {
		log.Error().Err(err).Msg("Ошибка создания объявления")
		return nil, fmt.Errorf("ошибка создания объявления: %w", err)
	}

	return listing, nil
}

// WithdrawListing закрывает объявление по инициативе владельца.
// Нерешённые заявки при этом отклоняются, чтобы не висеть на закрытом
// объявлении.
func (m *Manager) WithdrawListing(ctx context.Context, listingID, ownerID uuid.UUID) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var dbOwnerID uuid.UUID
	var status string
	err = tx.QueryRow(ctx, `
        SELECT user_id, status FROM listings WHERE id = $1 FOR UPDATE
    `, listingID).Scan(&dbOwnerID, &status)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: объявление", ErrNotFound)
		}
		return fmt.Errorf("ошибка запроса объявления: %w", err)
	}

	if dbOwnerID != ownerID {
		return fmt.Errorf("%w: закрыть объявление может только его владелец", ErrUnauthorized)
	}
	if status != models.ListingStatusActive {
		return ErrListingClosed
	}

	now := time.Now()

	_, err = tx.Exec(ctx, `
        UPDATE listings SET status = $1, updated_at = $2 WHERE id = $3
    `, models.ListingStatusClosed, now, listingID)
	if err != nil {
		return fmt.Errorf("ошибка закрытия объявления: %w", err)
	}

	_, err = tx.Exec(ctx, `
        UPDATE exchange_requests
        SET status = $1, decided_at = $2
        WHERE listing_id = $3 AND status = $4
    `, models.RequestStatusRejected, now, listingID, models.RequestStatusPending)
	if err != nil {
		return fmt.Errorf("ошибка отклонения заявок: %w", err)
	}

	return tx.Commit(ctx)
}

// SubmitRequest создает заявку на обмен по активному объявлению.
// Владелец не может откликаться на своё объявление, повторная заявка при
// нерешённой первой отклоняется. Гонку двух одновременных заявок решает
// частичный уникальный индекс по (listing_id, requester_id, pending).
func (m *Manager) SubmitRequest(ctx context.Context, listingID, requesterID uuid.UUID, message string) (*models.ExchangeRequest, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var ownerID uuid.UUID
	var status string
	err = tx.QueryRow(ctx, `
        SELECT user_id, status FROM listings WHERE id = $1 FOR UPDATE
    `, listingID).Scan(&ownerID, &status)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: объявление", ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка запроса объявления: %w", err)
	}

	if ownerID == requesterID {
		return nil, ErrInvalidRequest
	}
	if status != models.ListingStatusActive {
		return nil, ErrListingClosed
	}

	var exists bool
	err = tx.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM exchange_requests
            WHERE listing_id = $1 AND requester_id = $2 AND status = $3
        )
    `, listingID, requesterID, models.RequestStatusPending).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки существующих заявок: %w", err)
	}
	if exists {
		return nil, ErrDuplicatePending
	}

	request := &models.ExchangeRequest{
		ID:          uuid.New(),
		ListingID:   listingID,
		RequesterID: requesterID,
		Message:     strings.TrimSpace(message),
		Status:      models.RequestStatusPending,
	}

	err = tx.QueryRow(ctx, `
        INSERT INTO exchange_requests (id, listing_id, requester_id, message, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at
    `, request.ID, request.ListingID, request.RequesterID, request.Message, request.Status).
		Scan(&request.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicatePending
		}
		return nil, fmt.Errorf("ошибка сохранения заявки: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	return request, nil
}

// DecideRequest принимает или отклоняет заявку. Решение принимает только
// владелец объявления и только один раз. Принятие закрывает объявление,
// отклоняет остальные нерешённые заявки по нему и создает (либо
// переиспользует) диалог между участниками.
func (m *Manager) DecideRequest(ctx context.Context, requestID, deciderID uuid.UUID, decision string) (*models.ExchangeRequest, *models.Conversation, error) {
	if decision != models.RequestStatusAccepted && decision != models.RequestStatusRejected {
		return nil, nil, fmt.Errorf("%w: недопустимое решение %q", ErrValidation, decision)
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	request := &models.ExchangeRequest{ID: requestID}
	var ownerID uuid.UUID
	var listingStatus string

	// Блокируем заявку и объявление вместе: два одновременных принятия по
	// одному объявлению не должны закрыть его дважды
	err = tx.QueryRow(ctx, `
        SELECT r.listing_id, r.requester_id, r.message, r.status, r.created_at,
               l.user_id, l.status
        FROM exchange_requests r
        JOIN listings l ON l.id = r.listing_id
        WHERE r.id = $1
        FOR UPDATE OF r, l
    `, requestID).Scan(
		&request.ListingID,
		&request.RequesterID,
		&request.Message,
		&request.Status,
		&request.CreatedAt,
		&ownerID,
		&listingStatus,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: заявка", ErrNotFound)
		}
		return nil, nil, fmt.Errorf("ошибка запроса заявки: %w", err)
	}

	if ownerID != deciderID {
		return nil, nil, fmt.Errorf("%w: решение по заявке принимает владелец объявления", ErrUnauthorized)
	}
	if request.Status != models.RequestStatusPending {
		return nil, nil, ErrAlreadyDecided
	}

	now := time.Now()
	request.Status = decision
	request.DecidedAt = &now

	_, err = tx.Exec(ctx, `
        UPDATE exchange_requests SET status = $1, decided_at = $2 WHERE id = $3
    `, decision, now, requestID)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка обновления статуса заявки: %w", err)
	}

	if decision == models.RequestStatusRejected {
		if err = tx.Commit(ctx); err != nil {
			return nil, nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
		}
		return request, nil, nil
	}

	// Принятие: закрываем объявление
	_, err = tx.Exec(ctx, `
        UPDATE listings SET status = $1, updated_at = $2 WHERE id = $3
    `, models.ListingStatusClosed, now, request.ListingID)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка закрытия объявления: %w", err)
	}

	// Остальные нерешённые заявки по закрытому объявлению отклоняем
	_, err = tx.Exec(ctx, `
        UPDATE exchange_requests
        SET status = $1, decided_at = $2
        WHERE listing_id = $3 AND status = $4 AND id != $5
    `, models.RequestStatusRejected, now, request.ListingID, models.RequestStatusPending, requestID)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка отклонения остальных заявок: %w", err)
	}

	// Создаем диалог; если по этой паре (объявление, автор заявки) он уже
	// есть — переиспользуем существующий
	conversationID := uuid.New()
	_, err = tx.Exec(ctx, `
        INSERT INTO conversations (id, listing_id, owner_id, requester_id, status)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (listing_id, requester_id) DO NOTHING
    `, conversationID, request.ListingID, ownerID, request.RequesterID, models.ConversationStatusOpen)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка создания диалога: %w", err)
	}

	conversation := &models.Conversation{}
	err = tx.QueryRow(ctx, `
        SELECT id, listing_id, owner_id, requester_id, status, created_at
        FROM conversations
        WHERE listing_id = $1 AND requester_id = $2
    `, request.ListingID, request.RequesterID).Scan(
		&conversation.ID,
		&conversation.ListingID,
		&conversation.OwnerID,
		&conversation.RequesterID,
		&conversation.Status,
		&conversation.CreatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка чтения диалога: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	request.ConversationID = &conversation.ID
	return request, conversation, nil
}

// GetConversation возвращает диалог, проверяя, что пользователь — его участник
func (m *Manager) GetConversation(ctx context.Context, conversationID, userID uuid.UUID) (*models.Conversation, error) {
	conversation := &models.Conversation{}
	err := m.pool.QueryRow(ctx, `
        SELECT id, listing_id, owner_id, requester_id, status, created_at,
               last_message_text, last_message_time
        FROM conversations
        WHERE id = $1
    `, conversationID).Scan(
		&conversation.ID,
		&conversation.ListingID,
		&conversation.OwnerID,
		&conversation.RequesterID,
		&conversation.Status,
		&conversation.CreatedAt,
		&conversation.LastMessageText,
		&conversation.LastMessageTime,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: диалог", ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка запроса диалога: %w", err)
	}

	if !conversation.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: вы не участник этого диалога", ErrUnauthorized)
	}

	return conversation, nil
}

// PostMessage добавляет сообщение в открытый диалог от одного из участников
func (m *Manager) PostMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: текст сообщения не может быть пустым", ErrValidation)
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	conversation := &models.Conversation{}
	err = tx.QueryRow(ctx, `
        SELECT id, listing_id, owner_id, requester_id, status, created_at
        FROM conversations
        WHERE id = $1
        FOR UPDATE
    `, conversationID).Scan(
		&conversation.ID,
		&conversation.ListingID,
		&conversation.OwnerID,
		&conversation.RequesterID,
		&conversation.Status,
		&conversation.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: диалог", ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка запроса диалога: %w", err)
	}

	if !conversation.HasParticipant(senderID) {
		return nil, fmt.Errorf("%w: вы не участник этого диалога", ErrUnauthorized)
	}
	if !conversation.IsOpen() {
		return nil, ErrConversationClosed
	}

	message := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now(),
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO messages (id, conversation_id, sender_id, content, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, message.ID, message.ConversationID, message.SenderID, message.Content, message.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения сообщения: %w", err)
	}

	// Обновляем сводку диалога; свое сообщение отправитель считается прочитавшим
	readColumn := "requester_last_read_at"
	if senderID == conversation.OwnerID {
		readColumn = "owner_last_read_at"
	}
	_, err = tx.Exec(ctx, `
        UPDATE conversations
        SET last_message_text = $1, last_message_time = $2, `+readColumn+` = $2
        WHERE id = $3
    `, message.Content, message.CreatedAt, conversationID)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления диалога: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	return message, nil
}

// ListMessages возвращает сообщения диалога по возрастанию created_at
// (при равных отметках — в порядке вставки). Состояние не меняет, поэтому
// повторный вызов всегда возвращает тот же результат. after задает
// пагинацию: возвращаются сообщения после указанного.
func (m *Manager) ListMessages(ctx context.Context, conversationID, userID uuid.UUID, after uuid.UUID, limit int) ([]models.Message, error) {
	if _, err := m.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var rows pgx.Rows
	var err error

	if after != uuid.Nil {
		rows, err = m.pool.Query(ctx, `
            SELECT id, conversation_id, sender_id, content, created_at
            FROM messages
            WHERE conversation_id = $1
              AND seq > (SELECT seq FROM messages WHERE id = $2)
            ORDER BY created_at ASC, seq ASC
            LIMIT $3
        `, conversationID, after, limit)
	} else {
		rows, err = m.pool.Query(ctx, `
            SELECT id, conversation_id, sender_id, content, created_at
            FROM messages
            WHERE conversation_id = $1
            ORDER BY created_at ASC, seq ASC
            LIMIT $2
        `, conversationID, limit)
	}

	if err != nil {
		return nil, fmt.Errorf("ошибка запроса сообщений: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования сообщения: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// MarkRead отмечает диалог прочитанным для пользователя
func (m *Manager) MarkRead(ctx context.Context, conversationID, userID uuid.UUID) error {
	conversation, err := m.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return err
	}

	readColumn := "requester_last_read_at"
	if userID == conversation.OwnerID {
		readColumn = "owner_last_read_at"
	}

	_, err = m.pool.Exec(ctx, `
        UPDATE conversations SET `+readColumn+` = $1 WHERE id = $2
    `, time.Now(), conversationID)
	if err != nil {
		return fmt.Errorf("ошибка обновления отметки прочтения: %w", err)
	}

	return nil
}
