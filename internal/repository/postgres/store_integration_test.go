package postgres

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/db"
	"github.com/rajivgeraev/carswipe-api/internal/models"
	"github.com/rajivgeraev/carswipe-api/internal/repository"
)

var testPool *pgxpool.Pool

// TestMain поднимает PostgreSQL в Docker. Без Docker и под -short тесты пропускаются.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Printf("Could not construct pool: %s", err)
		os.Exit(m.Run())
	}
	if err := pool.Client.Ping(); err != nil {
		log.Printf("Could not connect to Docker: %s", err)
		os.Exit(m.Run())
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=carswipe",
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_DB=carswipe_test",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start PostgreSQL resource: %s", err)
	}
	resource.Expire(300)

	dsn := fmt.Sprintf("postgres://carswipe:secret@%s/carswipe_test?sslmode=disable", resource.GetHostPort("5432/tcp"))
	pool.MaxWait = 60 * time.Second
	if err := pool.Retry(func() error {
		p, err := pgxpool.New(context.Background(), dsn)
		if err != nil {
			return err
		}
		if err := p.Ping(context.Background()); err != nil {
			p.Close()
			return err
		}
		testPool = p
		return nil
	}); err != nil {
		pool.Purge(resource)
		log.Fatalf("Could not connect to PostgreSQL: %s", err)
	}

	if err := db.Migrate(context.Background(), testPool); err != nil {
		pool.Purge(resource)
		log.Fatalf("Could not migrate: %s", err)
	}

	code := m.Run()

	testPool.Close()
	if err := pool.Purge(resource); err != nil {
		log.Printf("Could not purge resource: %s", err)
	}
	os.Exit(code)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	if testPool == nil {
		t.Skip("PostgreSQL is not available")
	}
	return New(testPool)
}

func createPost(t *testing.T, store *Store, owner uuid.UUID) *models.Post {
	t.Helper()
	post := &models.Post{
		ID:        uuid.New(),
		UserID:    owner,
		Title:     "Volkswagen Golf",
		Make:      "Volkswagen",
		Model:     "Golf",
		Year:      2016,
		Price:     decimal.NewFromInt(9800),
		Status:    models.PostStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreatePost(context.Background(), post))
	return post
}

func matchFor(buyer uuid.UUID, post *models.Post) *models.Chat {
	now := time.Now().UTC()
	chat := &models.Chat{
		ID:        uuid.New(),
		BuyerID:   buyer,
		SellerID:  post.UserID,
		PostID:    post.ID,
		CreatedAt: now,
	}
	chat.Messages = []models.Message{{
		ID:       uuid.New(),
		ChatID:   chat.ID,
		SenderID: buyer,
		Text:     "Hey! I liked your post.",
		SentAt:   now,
	}}
	return chat
}

func TestConcurrentRightSwipesCreateOneChat(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	post := createPost(t, store, uuid.New())
	buyer := uuid.New()

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		chatIDs = map[uuid.UUID]struct{}{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			swipe := &models.Swipe{
				ID:        uuid.New(),
				BuyerID:   buyer,
				PostID:    post.ID,
				Direction: models.SwipeRight,
				CreatedAt: time.Now().UTC(),
			}
			chat, isNew, err := store.SaveSwipe(ctx, swipe, matchFor(buyer, post))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			chatIDs[chat.ID] = struct{}{}
			if isNew {
				created++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, chatIDs, 1)

	swipes, err := store.ListSwipesByBuyer(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, swipes, workers)

	chat, err := store.FindChat(ctx, buyer, post.ID)
	require.NoError(t, err)
	messages, err := store.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1, "начальное сообщение создаётся только с чатом")
}

func TestSaveSwipeUnknownPost(t *testing.T) {
	store := newTestStore(t)
	_, _, err := store.SaveSwipe(context.Background(), &models.Swipe{
		ID:        uuid.New(),
		BuyerID:   uuid.New(),
		PostID:    uuid.New(),
		Direction: models.SwipeLeft,
		CreatedAt: time.Now().UTC(),
	}, nil)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestInSaleTxRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	post := createPost(t, store, uuid.New())
	buyer := uuid.New()

	boom := errors.New("boom")
	err := store.InSaleTx(ctx, post.ID, func(tx repository.SaleTx) error {
		now := time.Now().UTC()
		require.NoError(t, tx.InsertSale(ctx, &models.Sale{
			ID: uuid.New(), PostID: post.ID, SellerID: post.UserID, BuyerID: &buyer,
			Amount: decimal.NewFromInt(9000), CreatedAt: now, ClosedAt: now,
		}))
		require.NoError(t, tx.SetPostStatus(ctx, models.PostStatusSold))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusActive, got.Status)
	_, err = store.GetSaleByPost(ctx, post.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestConcurrentSaleTransactionsSerialize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	post := createPost(t, store, uuid.New())

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buyer := uuid.New()
			err := store.InSaleTx(ctx, post.ID, func(tx repository.SaleTx) error {
				existing, err := tx.Sale(ctx)
				if err != nil {
					return err
				}
				if existing != nil {
					return apperr.Conflict("already sold")
				}
				now := time.Now().UTC()
				if err := tx.InsertSale(ctx, &models.Sale{
					ID: uuid.New(), PostID: post.ID, SellerID: post.UserID, BuyerID: &buyer,
					Amount: decimal.NewFromInt(9500), CreatedAt: now, ClosedAt: now,
				}); err != nil {
					return err
				}
				return tx.SetPostStatus(ctx, models.PostStatusSold)
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperr.Is(err, apperr.CodeConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)

	sale, err := store.GetSaleByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, sale.Amount.Equal(decimal.NewFromInt(9500)))
}

func TestDeletePostPolicy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	buyer := uuid.New()

	// Без продажи объявление удаляется вместе с чатами и сообщениями
	post := createPost(t, store, uuid.New())
	chat, _, err := store.CreateChatIfAbsent(ctx, matchFor(buyer, post))
	require.NoError(t, err)
	require.NoError(t, store.DeletePost(ctx, post.ID))

	_, err = store.GetChat(ctx, chat.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	messages, err := store.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	// Проданное объявление удалить нельзя
	sold := createPost(t, store, uuid.New())
	require.NoError(t, store.InSaleTx(ctx, sold.ID, func(tx repository.SaleTx) error {
		now := time.Now().UTC()
		if err := tx.InsertSale(ctx, &models.Sale{
			ID: uuid.New(), PostID: sold.ID, SellerID: sold.UserID,
			Amount: sold.Price, CreatedAt: now, ClosedAt: now,
		}); err != nil {
			return err
		}
		return tx.SetPostStatus(ctx, models.PostStatusSold)
	}))
	err = store.DeletePost(ctx, sold.ID)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
}

func TestDeleteChatRemovesMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	post := createPost(t, store, uuid.New())
	buyer := uuid.New()

	chat, created, err := store.CreateChatIfAbsent(ctx, matchFor(buyer, post))
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, store.CreateMessage(ctx, &models.Message{
		ID: uuid.New(), ChatID: chat.ID, SenderID: post.UserID, Text: "Still available", SentAt: time.Now().UTC(),
	}))

	require.NoError(t, store.DeleteChat(ctx, chat.ID))

	messages, err := store.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	// После удаления пара (покупатель, объявление) снова свободна
	_, created, err = store.CreateChatIfAbsent(ctx, matchFor(buyer, post))
	require.NoError(t, err)
	assert.True(t, created)
}

func TestListingQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seller, buyer, other := uuid.New(), uuid.New(), uuid.New()

	liked := createPost(t, store, seller)
	skipped := createPost(t, store, seller)
	fresh := createPost(t, store, seller)
	own := createPost(t, store, buyer)

	swipe := func(buyerID uuid.UUID, post *models.Post, dir models.SwipeDirection) {
		_, _, err := store.SaveSwipe(ctx, &models.Swipe{
			ID: uuid.New(), BuyerID: buyerID, PostID: post.ID, Direction: dir, CreatedAt: time.Now().UTC(),
		}, nil)
		require.NoError(t, err)
	}
	swipe(buyer, liked, models.SwipeRight)
	swipe(other, liked, models.SwipeRight)
	swipe(buyer, skipped, models.SwipeLeft)

	available, err := store.ListAvailablePosts(ctx, buyer)
	require.NoError(t, err)
	ids := map[uuid.UUID]bool{}
	for _, p := range available {
		ids[p.ID] = true
	}
	assert.True(t, ids[fresh.ID])
	assert.False(t, ids[liked.ID])
	assert.False(t, ids[skipped.ID])
	assert.False(t, ids[own.ID])

	likedPosts, err := store.ListLikedByOthers(ctx, seller)
	require.NoError(t, err)
	require.Len(t, likedPosts, 1)
	assert.Equal(t, liked.ID, likedPosts[0].ID)
}

func TestMessagesWithSameTimestampKeepSaveOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	post := createPost(t, store, uuid.New())
	buyer := uuid.New()

	chat, _, err := store.CreateChatIfAbsent(ctx, matchFor(buyer, post))
	require.NoError(t, err)

	sentAt := chat.Messages[0].SentAt
	want := []uuid.UUID{chat.Messages[0].ID}
	for i := 0; i < 10; i++ {
		msg := &models.Message{
			ID: uuid.New(), ChatID: chat.ID, SenderID: post.UserID, Text: fmt.Sprintf("msg %d", i), SentAt: sentAt,
		}
		require.NoError(t, store.CreateMessage(ctx, msg))
		want = append(want, msg.ID)
	}

	messages, err := store.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	got := make([]uuid.UUID, 0, len(messages))
	for _, m := range messages {
		got = append(got, m.ID)
	}
	assert.Equal(t, want, got)

	chats, err := store.ListChatsForUser(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	got = got[:0]
	for _, m := range chats[0].Messages {
		got = append(got, m.ID)
	}
	assert.Equal(t, want, got)
}

func TestListPostsByOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seller := uuid.New()

	older := createPost(t, store, seller)
	newer := createPost(t, store, seller)
	createPost(t, store, uuid.New())

	posts, err := store.ListPostsByOwner(ctx, seller)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, newer.ID, posts[0].ID)
	assert.Equal(t, older.ID, posts[1].ID)

	empty, err := store.ListPostsByOwner(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
