package swipe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/logger"
	"github.com/rajivgeraev/carswipe-api/internal/metrics"
	"github.com/rajivgeraev/carswipe-api/internal/models"
	"github.com/rajivgeraev/carswipe-api/internal/repository/memory"
)

func setup(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewService(store, metrics.New("test"), logger.NewNoOp()), store
}

func createPost(t *testing.T, store *memory.Store, owner uuid.UUID, status models.PostStatus) *models.Post {
	t.Helper()
	post := &models.Post{
		ID:        uuid.New(),
		UserID:    owner,
		Title:     "Toyota Corolla 2015",
		Make:      "Toyota",
		Model:     "Corolla",
		Year:      2015,
		Price:     decimal.NewFromInt(11000),
		Status:    status,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.CreatePost(context.Background(), post))
	return post
}

func chatsFor(t *testing.T, store *memory.Store, userID uuid.UUID) []models.Chat {
	t.Helper()
	chats, err := store.ListChatsForUser(context.Background(), userID)
	require.NoError(t, err)
	return chats
}

func TestRecordSwipeRightCreatesChatWithSeedMessage(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	seller, buyer := uuid.New(), uuid.New()
	post := createPost(t, store, seller, models.PostStatusActive)

	result, err := svc.RecordSwipe(ctx, buyer, post.ID, models.SwipeRight)
	require.NoError(t, err)
	require.NotNil(t, result.ChatID)
	assert.True(t, result.Matched)
	assert.Equal(t, models.SwipeRight, result.Swipe.Direction)

	chat, err := store.GetChat(ctx, *result.ChatID)
	require.NoError(t, err)
	assert.Equal(t, buyer, chat.BuyerID)
	assert.Equal(t, seller, chat.SellerID)
	assert.Equal(t, post.ID, chat.PostID)

	msgs, err := store.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, SeedMessage, msgs[0].Text)
	assert.Equal(t, buyer, msgs[0].SenderID)
}

func TestRecordSwipeLeftDoesNotCreateChat(t *testing.T) {
	svc, store := setup(t)
	seller, buyer := uuid.New(), uuid.New()
	post := createPost(t, store, seller, models.PostStatusActive)

	result, err := svc.RecordSwipe(context.Background(), buyer, post.ID, models.SwipeLeft)
	require.NoError(t, err)
	assert.Nil(t, result.ChatID)
	assert.False(t, result.Matched)
	assert.Empty(t, chatsFor(t, store, buyer))
}

func TestRecordSwipeUnknownPost(t *testing.T) {
	svc, store := setup(t)
	buyer := uuid.New()

	_, err := svc.RecordSwipe(context.Background(), buyer, uuid.New(), models.SwipeRight)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	swipes, err := store.ListSwipesByBuyer(context.Background(), buyer)
	require.NoError(t, err)
	assert.Empty(t, swipes)
}

func TestRecordSwipeRejectsOwnPost(t *testing.T) {
	svc, store := setup(t)
	seller := uuid.New()
	post := createPost(t, store, seller, models.PostStatusActive)

	_, err := svc.RecordSwipe(context.Background(), seller, post.ID, models.SwipeRight)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
	assert.Empty(t, chatsFor(t, store, seller))
}

func TestRepeatedRightSwipeReusesChat(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	seller, buyer := uuid.New(), uuid.New()
	post := createPost(t, store, seller, models.PostStatusActive)

	first, err := svc.RecordSwipe(ctx, buyer, post.ID, models.SwipeRight)
	require.NoError(t, err)
	second, err := svc.RecordSwipe(ctx, buyer, post.ID, models.SwipeRight)
	require.NoError(t, err)

	assert.Equal(t, *first.ChatID, *second.ChatID)
	assert.False(t, second.Matched)
	assert.NotEqual(t, first.Swipe.ID, second.Swipe.ID)

	msgs, err := store.ListMessages(ctx, *first.ChatID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestRightSwipeAfterChatDeletionRecreatesChat(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	seller, buyer := uuid.New(), uuid.New()
	post := createPost(t, store, seller, models.PostStatusActive)

	first, err := svc.RecordSwipe(ctx, buyer, post.ID, models.SwipeRight)
	require.NoError(t, err)
	require.NoError(t, store.DeleteChat(ctx, *first.ChatID))

	second, err := svc.RecordSwipe(ctx, buyer, post.ID, models.SwipeRight)
	require.NoError(t, err)
	assert.True(t, second.Matched)
	assert.NotEqual(t, *first.ChatID, *second.ChatID)
	assert.Len(t, chatsFor(t, store, buyer), 1)
}

func TestConcurrentRightSwipesCreateOneChat(t *testing.T) {
	svc, store := setup(t)
	seller, buyer := uuid.New(), uuid.New()
	post := createPost(t, store, seller, models.PostStatusActive)

	const workers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		chatIDs = make(map[uuid.UUID]struct{})
		matched int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			result, err := svc.RecordSwipe(context.Background(), buyer, post.ID, models.SwipeRight)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			chatIDs[*result.ChatID] = struct{}{}
			if result.Matched {
				matched++
			}
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	assert.Len(t, chatIDs, 1)
	assert.Equal(t, 1, matched)
	assert.Len(t, chatsFor(t, store, buyer), 1)
}

func TestListAvailablePostsExcludesOwnSwipedAndSold(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()

	own := createPost(t, store, buyer, models.PostStatusActive)
	swiped := createPost(t, store, seller, models.PostStatusActive)
	sold := createPost(t, store, seller, models.PostStatusSold)
	fresh := createPost(t, store, seller, models.PostStatusActive)

	_, err := svc.RecordSwipe(ctx, buyer, swiped.ID, models.SwipeLeft)
	require.NoError(t, err)

	posts, err := svc.ListAvailablePosts(ctx, buyer)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []uuid.UUID{fresh.ID}, ids)
	assert.NotContains(t, ids, own.ID)
	assert.NotContains(t, ids, sold.ID)
}

func TestListLikedByOthersIsDistinct(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	seller := uuid.New()
	liked := createPost(t, store, seller, models.PostStatusActive)
	onlyLeft := createPost(t, store, seller, models.PostStatusActive)

	for _, buyer := range []uuid.UUID{uuid.New(), uuid.New()} {
		_, err := svc.RecordSwipe(ctx, buyer, liked.ID, models.SwipeRight)
		require.NoError(t, err)
	}
	_, err := svc.RecordSwipe(ctx, uuid.New(), onlyLeft.ID, models.SwipeLeft)
	require.NoError(t, err)

	posts, err := svc.ListLikedByOthers(ctx, seller)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, liked.ID, posts[0].ID)
}

func TestGetSwipeHidesOtherBuyers(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	buyer := uuid.New()
	post := createPost(t, store, uuid.New(), models.PostStatusActive)

	result, err := svc.RecordSwipe(ctx, buyer, post.ID, models.SwipeLeft)
	require.NoError(t, err)

	got, err := svc.GetSwipe(ctx, buyer, result.Swipe.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Swipe.ID, got.ID)

	_, err = svc.GetSwipe(ctx, uuid.New(), result.Swipe.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestListMySwipesKeepsEverySwipe(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	buyer := uuid.New()
	post := createPost(t, store, uuid.New(), models.PostStatusActive)

	// Повторные свайпы не схлопываются
	for _, dir := range []models.SwipeDirection{models.SwipeLeft, models.SwipeRight, models.SwipeRight} {
		_, err := svc.RecordSwipe(ctx, buyer, post.ID, dir)
		require.NoError(t, err)
	}

	swipes, err := svc.ListMySwipes(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, swipes, 3)

	other, err := svc.ListMySwipes(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
}
