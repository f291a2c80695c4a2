package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"facebot/internal/adapters/dto"
	"facebot/internal/core/domain"
)

// ============================================================================
// Mock Ports
// ============================================================================

type MockContentFetcher struct {
	mock.Mock
}

func (m *MockContentFetcher) FetchContent(ctx context.Context, messageID string) (string, error) {
	args := m.Called(ctx, messageID)
	return args.String(0), args.Error(1)
}

type MockFaceAnalyzer struct {
	mock.Mock
}

func (m *MockFaceAnalyzer) Detect(ctx context.Context, imageBase64 string) ([]domain.DetectedFace, error) {
	args := m.Called(ctx, imageBase64)
	if result := args.Get(0); result != nil {
		return result.([]domain.DetectedFace), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockReplySender struct {
	mock.Mock
}

func (m *MockReplySender) Reply(ctx context.Context, replyToken string, messages []domain.ReplyMessage) error {
	args := m.Called(ctx, replyToken, messages)
	return args.Error(0)
}

type MockUserStateRepository struct {
	mock.Mock
}

func (m *MockUserStateRepository) SetFollowState(ctx context.Context, userID string, following bool) error {
	args := m.Called(ctx, userID, following)
	return args.Error(0)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) SaveEvent(ctx context.Context, audit *domain.EventAudit) error {
	args := m.Called(ctx, audit)
	return args.Error(0)
}

func (m *MockAuditRepository) PurgeOlderThan(ctx context.Context, cutoffDays int, limit int) (int64, error) {
	args := m.Called(ctx, cutoffDays, limit)
	return int64(args.Int(0)), args.Error(1)
}

// ============================================================================
// Test Helpers
// ============================================================================

func createTestDispatcher() (*Dispatcher, *MockContentFetcher, *MockFaceAnalyzer, *MockReplySender, *MockUserStateRepository, *MockAuditRepository) {
	fetcher := new(MockContentFetcher)
	analyzer := new(MockFaceAnalyzer)
	sender := new(MockReplySender)
	users := new(MockUserStateRepository)
	audit := new(MockAuditRepository)

	// Audit writes are fire-and-forget, tests never depend on them
	audit.On("SaveEvent", mock.Anything, mock.AnythingOfType("*domain.EventAudit")).Return(nil).Maybe()

	dispatcher := NewDispatcher(fetcher, analyzer, sender, users, audit)

	return dispatcher, fetcher, analyzer, sender, users, audit
}

func imageEvent(messageID, replyToken, userID string) dto.Event {
	return dto.Event{
		Type:       dto.EventTypeMessage,
		ReplyToken: replyToken,
		Source:     dto.EventSource{Type: "user", UserID: userID},
		Message:    &dto.EventMessage{ID: messageID, Type: dto.MessageTypeImage},
	}
}

func textEvent(replyToken, userID, text string) dto.Event {
	return dto.Event{
		Type:       dto.EventTypeMessage,
		ReplyToken: replyToken,
		Source:     dto.EventSource{Type: "user", UserID: userID},
		Message:    &dto.EventMessage{ID: "m-text", Type: "text", Text: text},
	}
}

// textsOf flattens reply messages for easier assertions
func textsOf(messages []domain.ReplyMessage) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Text)
	}
	return out
}

// ============================================================================
// Image pipeline
// ============================================================================

func TestDispatch_ImageMessage_RepliesWithDiagnosis(t *testing.T) {
	dispatcher, fetcher, analyzer, sender, _, _ := createTestDispatcher()
	ctx := context.Background()

	faces := []domain.DetectedFace{
		{RectangleLeft: 50, Age: 30, Gender: domain.GenderMale, BeautyMale: 72.6},
		{RectangleLeft: 10, Age: 25, Gender: domain.GenderFemale, BeautyFemale: 88.2},
	}

	fetcher.On("FetchContent", mock.Anything, "msg-1").Return("aW1hZ2U=", nil)
	analyzer.On("Detect", mock.Anything, "aW1hZ2U=").Return(faces, nil)
	sender.On("Reply", mock.Anything, "token-1", mock.MatchedBy(func(messages []domain.ReplyMessage) bool {
		texts := textsOf(messages)
		return len(texts) == 2 &&
			texts[0] == "From the left, person 1: age 25, female, beauty score 88 out of 100" &&
			texts[1] == "From the left, person 2: age 30, male, beauty score 73 out of 100"
	})).Return(nil)

	dispatcher.Dispatch(ctx, []dto.Event{imageEvent("msg-1", "token-1", "U1")})

	fetcher.AssertExpectations(t)
	analyzer.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestDispatch_ImageMessage_ZeroFacesIsNotAnError(t *testing.T) {
	dispatcher, fetcher, analyzer, sender, _, _ := createTestDispatcher()
	ctx := context.Background()

	fetcher.On("FetchContent", mock.Anything, "msg-1").Return("aW1hZ2U=", nil)
	analyzer.On("Detect", mock.Anything, "aW1hZ2U=").Return([]domain.DetectedFace{}, nil)
	sender.On("Reply", mock.Anything, "token-1", mock.MatchedBy(func(messages []domain.ReplyMessage) bool {
		return len(messages) == 1 && messages[0].Text == MsgNoFace
	})).Return(nil)

	dispatcher.Dispatch(ctx, []dto.Event{imageEvent("msg-1", "token-1", "U1")})

	sender.AssertExpectations(t)
}

func TestDispatch_ImageMessage_FetchErrorStillReplies(t *testing.T) {
	dispatcher, fetcher, analyzer, sender, _, _ := createTestDispatcher()
	ctx := context.Background()

	fetcher.On("FetchContent", mock.Anything, "msg-1").Return("", errors.New("content endpoint returned 404"))
	sender.On("Reply", mock.Anything, "token-1", mock.MatchedBy(func(messages []domain.ReplyMessage) bool {
		return len(messages) == 1 && messages[0].Text == MsgPipelineError
	})).Return(nil)

	dispatcher.Dispatch(ctx, []dto.Event{imageEvent("msg-1", "token-1", "U1")})

	sender.AssertExpectations(t)
	analyzer.AssertNotCalled(t, "Detect", mock.Anything, mock.Anything)
}

func TestDispatch_ImageMessage_AnalysisErrorStillReplies(t *testing.T) {
	dispatcher, fetcher, analyzer, sender, _, _ := createTestDispatcher()
	ctx := context.Background()

	fetcher.On("FetchContent", mock.Anything, "msg-1").Return("aW1hZ2U=", nil)
	analyzer.On("Detect", mock.Anything, "aW1hZ2U=").Return(nil, errors.New("INVALID_IMAGE_SIZE"))
	sender.On("Reply", mock.Anything, "token-1", mock.MatchedBy(func(messages []domain.ReplyMessage) bool {
		return len(messages) == 1 && messages[0].Text == MsgPipelineError
	})).Return(nil)

	dispatcher.Dispatch(ctx, []dto.Event{imageEvent("msg-1", "token-1", "U1")})

	sender.AssertExpectations(t)
}

func TestDispatch_ImageMessage_ReplyErrorIsTerminal(t *testing.T) {
	dispatcher, fetcher, analyzer, sender, _, _ := createTestDispatcher()
	ctx := context.Background()

	fetcher.On("FetchContent", mock.Anything, "msg-1").Return("aW1hZ2U=", nil)
	analyzer.On("Detect", mock.Anything, "aW1hZ2U=").Return([]domain.DetectedFace{}, nil)
	sender.On("Reply", mock.Anything, "token-1", mock.Anything).Return(errors.New("reply token already used"))

	assert.NotPanics(t, func() {
		dispatcher.Dispatch(ctx, []dto.Event{imageEvent("msg-1", "token-1", "U1")})
	})

	// Exactly one reply attempt, no retry
	sender.AssertNumberOfCalls(t, "Reply", 1)
}

// ============================================================================
// Follow / unfollow
// ============================================================================

func TestDispatch_FollowEvent_WritesUnblockedState(t *testing.T) {
	dispatcher, _, _, sender, users, _ := createTestDispatcher()
	ctx := context.Background()

	users.On("SetFollowState", mock.Anything, "U1", true).Return(nil)

	dispatcher.Dispatch(ctx, []dto.Event{{
		Type:       dto.EventTypeFollow,
		ReplyToken: "token-f",
		Source:     dto.EventSource{Type: "user", UserID: "U1"},
	}})

	users.AssertExpectations(t)
	sender.AssertNotCalled(t, "Reply", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_UnfollowEvent_WritesBlockedState(t *testing.T) {
	dispatcher, _, _, sender, users, _ := createTestDispatcher()
	ctx := context.Background()

	users.On("SetFollowState", mock.Anything, "U1", false).Return(nil)

	dispatcher.Dispatch(ctx, []dto.Event{{
		Type:   dto.EventTypeUnfollow,
		Source: dto.EventSource{Type: "user", UserID: "U1"},
	}})

	users.AssertExpectations(t)
	sender.AssertNotCalled(t, "Reply", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_FollowEvent_StateWriteErrorIsSwallowed(t *testing.T) {
	dispatcher, _, _, sender, users, _ := createTestDispatcher()
	ctx := context.Background()

	users.On("SetFollowState", mock.Anything, "U1", true).Return(errors.New("redis connection refused"))

	assert.NotPanics(t, func() {
		dispatcher.Dispatch(ctx, []dto.Event{{
			Type:   dto.EventTypeFollow,
			Source: dto.EventSource{Type: "user", UserID: "U1"},
		}})
	})

	users.AssertExpectations(t)
	sender.AssertNotCalled(t, "Reply", mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================================
// Default prompt path
// ============================================================================

func TestDispatch_TextMessage_RepliesWithPrompt(t *testing.T) {
	dispatcher, fetcher, analyzer, sender, _, _ := createTestDispatcher()
	ctx := context.Background()

	sender.On("Reply", mock.Anything, "token-2", mock.MatchedBy(func(messages []domain.ReplyMessage) bool {
		return len(messages) == 1 && messages[0].Text == MsgPrompt
	})).Return(nil)

	dispatcher.Dispatch(ctx, []dto.Event{textEvent("token-2", "U1", "hello bot")})

	sender.AssertExpectations(t)
	fetcher.AssertNotCalled(t, "FetchContent", mock.Anything, mock.Anything)
	analyzer.AssertNotCalled(t, "Detect", mock.Anything, mock.Anything)
}

func TestDispatch_UnknownEventType_RepliesWithPrompt(t *testing.T) {
	dispatcher, _, _, sender, _, _ := createTestDispatcher()
	ctx := context.Background()

	sender.On("Reply", mock.Anything, "token-3", mock.MatchedBy(func(messages []domain.ReplyMessage) bool {
		return len(messages) == 1 && messages[0].Text == MsgPrompt
	})).Return(nil)

	dispatcher.Dispatch(ctx, []dto.Event{{
		Type:       "postback",
		ReplyToken: "token-3",
		Source:     dto.EventSource{Type: "user", UserID: "U1"},
	}})

	sender.AssertExpectations(t)
}

// ============================================================================
// Batch behavior
// ============================================================================

// Events in one batch are independent: one failing pipeline must not stop
// the others from replying
func TestDispatch_BatchEventsAreIndependent(t *testing.T) {
	dispatcher, fetcher, analyzer, sender, users, _ := createTestDispatcher()
	ctx := context.Background()

	fetcher.On("FetchContent", mock.Anything, "msg-bad").Return("", errors.New("boom"))
	sender.On("Reply", mock.Anything, "token-bad", mock.MatchedBy(func(messages []domain.ReplyMessage) bool {
		return len(messages) == 1 && messages[0].Text == MsgPipelineError
	})).Return(nil)
	sender.On("Reply", mock.Anything, "token-text", mock.MatchedBy(func(messages []domain.ReplyMessage) bool {
		return len(messages) == 1 && messages[0].Text == MsgPrompt
	})).Return(nil)
	users.On("SetFollowState", mock.Anything, "U2", true).Return(nil)

	dispatcher.Dispatch(ctx, []dto.Event{
		imageEvent("msg-bad", "token-bad", "U1"),
		textEvent("token-text", "U1", "hi"),
		{Type: dto.EventTypeFollow, Source: dto.EventSource{Type: "user", UserID: "U2"}},
	})

	sender.AssertExpectations(t)
	users.AssertExpectations(t)
	analyzer.AssertNotCalled(t, "Detect", mock.Anything, mock.Anything)
}

func TestDispatch_AuditRowsAreRecorded(t *testing.T) {
	dispatcher, _, _, sender, _, audit := createTestDispatcher()
	ctx := context.Background()

	sender.On("Reply", mock.Anything, "token-2", mock.Anything).Return(nil)

	dispatcher.Dispatch(ctx, []dto.Event{textEvent("token-2", "U1", "hello")})

	// Audit writes are async; give the goroutine a moment
	time.Sleep(100 * time.Millisecond)

	audit.AssertCalled(t, "SaveEvent", mock.Anything, mock.MatchedBy(func(a *domain.EventAudit) bool {
		return a.EventType == dto.EventTypeMessage && a.Status == domain.AuditStatusProcessed && a.ErrorLog == nil
	}))
}

func TestDispatch_EmptyBatchIsANoOp(t *testing.T) {
	dispatcher, fetcher, _, sender, users, _ := createTestDispatcher()

	assert.NotPanics(t, func() {
		dispatcher.Dispatch(context.Background(), nil)
	})

	fetcher.AssertNotCalled(t, "FetchContent", mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "Reply", mock.Anything, mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "SetFollowState", mock.Anything, mock.Anything, mock.Anything)
}
