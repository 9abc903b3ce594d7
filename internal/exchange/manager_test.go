package exchange

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/skillswap-api/internal/models"
)

// newTestManager подключается к тестовой базе. Без TEST_DATABASE_URL тесты
// жизненного цикла пропускаются (схема из migrations/ должна быть применена).
func newTestManager(t *testing.T) (*Manager, *pgxpool.Pool) {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL не задан, пропускаем интеграционный тест")
	}

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewManager(pool), pool
}

// createTestUser создает пользователя для теста
func createTestUser(t *testing.T, pool *pgxpool.Pool, name string) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
        INSERT INTO users (email, name, email_confirmed)
        VALUES ($1, $2, TRUE)
        RETURNING id
    `, fmt.Sprintf("%s-%s@test.local", name, uuid.New().String()[:8]), name).Scan(&id)
	require.NoError(t, err)

	return id
}

func createTestListing(t *testing.T, m *Manager, ownerID uuid.UUID) *models.Listing {
	t.Helper()

	listing, err := m.CreateListing(context.Background(), ownerID,
		"Обменяю React на Python", "Опытный фронтендер хочет выучить Python",
		[]string{"React", "TypeScript"}, []string{"Python"})
	require.NoError(t, err)
	require.Equal(t, models.ListingStatusActive, listing.Status)

	return listing
}

func TestSubmitRequestOwnListing(t *testing.T) {
	m, pool := newTestManager(t)
	ctx := context.Background()

	owner := createTestUser(t, pool, "owner")
	listing := createTestListing(t, m, owner)

	_, err := m.SubmitRequest(ctx, listing.ID, owner, "хочу сам")
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSubmitRequestDuplicatePending(t *testing.T) {
	m, pool := newTestManager(t)
	ctx := context.Background()

	owner := createTestUser(t, pool, "owner")
	requester := createTestUser(t, pool, "requester")
	listing := createTestListing(t, m, owner)

	first, err := m.SubmitRequest(ctx, listing.ID, requester, "привет")
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusPending, first.Status)

	_, err = m.SubmitRequest(ctx, listing.ID, requester, "еще раз")
	require.ErrorIs(t, err, ErrDuplicatePending)
}

func TestSubmitRequestMissingListing(t *testing.T) {
	m, pool := newTestManager(t)
	ctx := context.Background()

	requester := createTestUser(t, pool, "requester")

	_, err := m.SubmitRequest(ctx, uuid.New(), requester, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDecideRequestUnauthorized(t *testing.T) {
	m, pool := newTestManager(t)
	ctx := context.Background()

	owner := createTestUser(t, pool, "owner")
	requester := createTestUser(t, pool, "requester")
	stranger := createTestUser(t, pool, "stranger")
	listing := createTestListing(t, m, owner)

	request, err := m.SubmitRequest(ctx, listing.ID, requester, "")
	require.NoError(t, err)

	// Ни посторонний, ни сам автор заявки не могут ее решить
	_, _, err = m.DecideRequest(ctx, request.ID, stranger, models.RequestStatusAccepted)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = m.DecideRequest(ctx, request.ID, requester, models.RequestStatusAccepted)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestDecideRequestTwice(t *testing.T) {
	m, pool := newTestManager(t)
	ctx := context.Background()

	owner := createTestUser(t, pool, "owner")
	requester := createTestUser(t, pool, "requester")
	listing := createTestListing(t, m, owner)

	request, err := m.SubmitRequest(ctx, listing.ID, requester, "")
	require.NoError(t, err)

	decided, _, err := m.DecideRequest(ctx, request.ID, owner, models.RequestStatusRejected)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusRejected, decided.Status)
	require.NotNil(t, decided.DecidedAt)

	// Повторное решение всегда отклоняется, независимо от первого
	_, _, err = m.DecideRequest(ctx, request.ID, owner, models.RequestStatusAccepted)
	require.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestAcceptClosesListingAndRejectsOthers(t *testing.T) {
	m, pool := newTestManager(t)
	ctx := context.Background()

	owner := createTestUser(t, pool, "owner")
	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")
	carol := createTestUser(t, pool, "carol")
	listing := createTestListing(t, m, owner)

	reqAlice, err := m.SubmitRequest(ctx, listing.ID, alice, "возьмите меня")
	require.NoError(t, err)
	reqBob, err := m.SubmitRequest(ctx, listing.ID, bob, "или меня")
	require.NoError(t, err)

	decided, conversation, err := m.DecideRequest(ctx, reqAlice.ID, owner, models.RequestStatusAccepted)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusAccepted, decided.Status)
	require.NotNil(t, conversation)
	require.Equal(t, owner, conversation.OwnerID)
	require.Equal(t, alice, conversation.RequesterID)
	require.Equal(t, models.ConversationStatusOpen, conversation.Status)

	// Объявление закрыто
	var listingStatus string
	err = pool.QueryRow(ctx, `SELECT status FROM listings WHERE id = $1`, listing.ID).Scan(&listingStatus)
	require.NoError(t, err)
	require.Equal(t, models.ListingStatusClosed, listingStatus)

	// Остальные нерешённые заявки отклонены автоматически
	var bobStatus string
	err = pool.QueryRow(ctx, `SELECT status FROM exchange_requests WHERE id = $1`, reqBob.ID).Scan(&bobStatus)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusRejected, bobStatus)

	// Новая заявка по закрытому объявлению не проходит
	_, err = m.SubmitRequest(ctx, listing.ID, carol, "а я опоздала")
	require.ErrorIs(t, err, ErrListingClosed)

	// Повторное принятие уже отклоненной заявки невозможно
	_, _, err = m.DecideRequest(ctx, reqBob.ID, owner, models.RequestStatusAccepted)
	require.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestPostAndListMessages(t *testing.T) {
	m, pool := newTestManager(t)
	ctx := context.Background()

	owner := createTestUser(t, pool, "owner")
	requester := createTestUser(t, pool, "requester")
	stranger := createTestUser(t, pool, "stranger")
	listing := createTestListing(t, m, owner)

	request, err := m.SubmitRequest(ctx, listing.ID, requester, "привет")
	require.NoError(t, err)

	_, conversation, err := m.DecideRequest(ctx, request.ID, owner, models.RequestStatusAccepted)
	require.NoError(t, err)

	// Посторонний не может писать в диалог
	_, err = m.PostMessage(ctx, conversation.ID, stranger, "привет всем")
	require.ErrorIs(t, err, ErrUnauthorized)

	// Пустое сообщение отклоняется
	_, err = m.PostMessage(ctx, conversation.ID, requester, "   ")
	require.ErrorIs(t, err, ErrValidation)

	contents := []string{"спасибо", "когда начнем?", "давайте завтра"}
	senders := []uuid.UUID{requester, owner, requester}
	for i, content := range contents {
		msg, err := m.PostMessage(ctx, conversation.ID, senders[i], content)
		require.NoError(t, err)
		require.Equal(t, content, msg.Content)
	}

	// Второй участник читает все сообщения в порядке отправки
	messages, err := m.ListMessages(ctx, conversation.ID, owner, uuid.Nil, 0)
	require.NoError(t, err)
	require.Len(t, messages, len(contents))
	for i, msg := range messages {
		require.Equal(t, contents[i], msg.Content)
		require.Equal(t, senders[i], msg.SenderID)
		if i > 0 {
			require.False(t, msg.CreatedAt.Before(messages[i-1].CreatedAt))
		}
	}

	// Повторное чтение дает тот же результат
	again, err := m.ListMessages(ctx, conversation.ID, requester, uuid.Nil, 0)
	require.NoError(t, err)
	require.Len(t, again, len(contents))

	// Пагинация: после первого сообщения остаются два
	tail, err := m.ListMessages(ctx, conversation.ID, owner, messages[0].ID, 0)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	require.Equal(t, contents[1], tail[0].Content)

	// Посторонний не может читать диалог
	_, err = m.ListMessages(ctx, conversation.ID, stranger, uuid.Nil, 0)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestMarkReadAffectsUnreadWindow(t *testing.T) {
	m, pool := newTestManager(t)
	ctx := context.Background()

	owner := createTestUser(t, pool, "owner")
	requester := createTestUser(t, pool, "requester")
	listing := createTestListing(t, m, owner)

	request, err := m.SubmitRequest(ctx, listing.ID, requester, "")
	require.NoError(t, err)
	_, conversation, err := m.DecideRequest(ctx, request.ID, owner, models.RequestStatusAccepted)
	require.NoError(t, err)

	_, err = m.PostMessage(ctx, conversation.ID, requester, "вы тут?")
	require.NoError(t, err)

	require.NoError(t, m.MarkRead(ctx, conversation.ID, owner))

	var lastRead *time.Time
	err = pool.QueryRow(ctx, `SELECT owner_last_read_at FROM conversations WHERE id = $1`, conversation.ID).Scan(&lastRead)
	require.NoError(t, err)
	require.NotNil(t, lastRead)
}

func TestWithdrawListing(t *testing.T) {
	m, pool := newTestManager(t)
	ctx := context.Background()

	owner := createTestUser(t, pool, "owner")
	requester := createTestUser(t, pool, "requester")
	listing := createTestListing(t, m, owner)

	request, err := m.SubmitRequest(ctx, listing.ID, requester, "")
	require.NoError(t, err)

	// Закрыть может только владелец
	err = m.WithdrawListing(ctx, listing.ID, requester)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, m.WithdrawListing(ctx, listing.ID, owner))

	// Нерешённая заявка отклонена вместе с закрытием
	var status string
	err = pool.QueryRow(ctx, `SELECT status FROM exchange_requests WHERE id = $1`, request.ID).Scan(&status)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusRejected, status)

	// Повторное закрытие не проходит
	err = m.WithdrawListing(ctx, listing.ID, owner)
	require.ErrorIs(t, err, ErrListingClosed)
}

func TestConversationReusedPerPair(t *testing.T) {
	m, pool := newTestManager(t)
	ctx := context.Background()

	owner := createTestUser(t, pool, "owner")
	requester := createTestUser(t, pool, "requester")
	listing := createTestListing(t, m, owner)

	request, err := m.SubmitRequest(ctx, listing.ID, requester, "")
	require.NoError(t, err)

	// Существующий диалог по паре (объявление, автор заявки) должен быть
	// переиспользован, а не продублирован
	existingID := uuid.New()
	_, err = pool.Exec(ctx, `
        INSERT INTO conversations (id, listing_id, owner_id, requester_id, status)
        VALUES ($1, $2, $3, $4, $5)
    `, existingID, listing.ID, owner, requester, models.ConversationStatusOpen)
	require.NoError(t, err)

	_, conversation, err := m.DecideRequest(ctx, request.ID, owner, models.RequestStatusAccepted)
	require.NoError(t, err)
	require.Equal(t, existingID, conversation.ID)

	var count int
	err = pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM conversations WHERE listing_id = $1 AND requester_id = $2
    `, listing.ID, requester).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
