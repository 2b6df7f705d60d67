package mock

import (
	context "context"
	reflect "reflect"
	time "time"

	models "github.com/questweave/questweave/questweave/database/models"
	gomock "go.uber.org/mock/gomock"
)

// MockStore is a mock of Store interface.
type MockStore struct {
	ctrl     *gomock.Controller
	recorder *MockStoreMockRecorder
	isgomock struct{}
}

// MockStoreMockRecorder is the mock recorder for MockStore.
type MockStoreMockRecorder struct {
	mock *MockStore
}

// NewMockStore creates a new mock instance.
func NewMockStore(ctrl *gomock.Controller) *MockStore {
	mock := &MockStore{ctrl: ctrl}
	mock.recorder = &MockStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockStore) EXPECT() *MockStoreMockRecorder {
	return m.recorder
}

// AcquireLease mocks base method.
func (m *MockStore) AcquireLease(ctx context.Context, questID int64, owner string, ttl time.Duration) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AcquireLease", ctx, questID, owner, ttl)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// AcquireLease indicates an expected call of AcquireLease.
func (mr *MockStoreMockRecorder) AcquireLease(ctx, questID, owner, ttl any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AcquireLease", reflect.TypeOf((*MockStore)(nil).AcquireLease), ctx, questID, owner, ttl)
}

// ActiveQuests mocks base method.
func (m *MockStore) ActiveQuests(ctx context.Context) ([]*models.Quest, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ActiveQuests", ctx)
	ret0, _ := ret[0].([]*models.Quest)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ActiveQuests indicates an expected call of ActiveQuests.
func (mr *MockStoreMockRecorder) ActiveQuests(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ActiveQuests", reflect.TypeOf((*MockStore)(nil).ActiveQuests), ctx)
}

// AdvanceQuest mocks base method.
func (m *MockStore) AdvanceQuest(ctx context.Context, quest *models.Quest, fromChapter int) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AdvanceQuest", ctx, quest, fromChapter)
	ret0, _ := ret[0].(error)
	return ret0
}

// AdvanceQuest indicates an expected call of AdvanceQuest.
func (mr *MockStoreMockRecorder) AdvanceQuest(ctx, quest, fromChapter any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AdvanceQuest", reflect.TypeOf((*MockStore)(nil).AdvanceQuest), ctx, quest, fromChapter)
}

// ChapterByNumber mocks base method.
func (m *MockStore) ChapterByNumber(ctx context.Context, questID int64, number int) (*models.Chapter, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ChapterByNumber", ctx, questID, number)
	ret0, _ := ret[0].(*models.Chapter)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ChapterByNumber indicates an expected call of ChapterByNumber.
func (mr *MockStoreMockRecorder) ChapterByNumber(ctx, questID, number any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ChapterByNumber", reflect.TypeOf((*MockStore)(nil).ChapterByNumber), ctx, questID, number)
}

// ChaptersForQuest mocks base method.
func (m *MockStore) ChaptersForQuest(ctx context.Context, questID int64) ([]*models.Chapter, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ChaptersForQuest", ctx, questID)
	ret0, _ := ret[0].([]*models.Chapter)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ChaptersForQuest indicates an expected call of ChaptersForQuest.
func (mr *MockStoreMockRecorder) ChaptersForQuest(ctx, questID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ChaptersForQuest", reflect.TypeOf((*MockStore)(nil).ChaptersForQuest), ctx, questID)
}

// CreateChapter mocks base method.
func (m *MockStore) CreateChapter(ctx context.Context, chapter *models.Chapter) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CreateChapter", ctx, chapter)
	ret0, _ := ret[0].(error)
	return ret0
}

// CreateChapter indicates an expected call of CreateChapter.
func (mr *MockStoreMockRecorder) CreateChapter(ctx, chapter any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreateChapter", reflect.TypeOf((*MockStore)(nil).CreateChapter), ctx, chapter)
}

// DueQuests mocks base method.
func (m *MockStore) DueQuests(ctx context.Context, now time.Time) ([]*models.Quest, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DueQuests", ctx, now)
	ret0, _ := ret[0].([]*models.Quest)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// DueQuests indicates an expected call of DueQuests.
func (mr *MockStoreMockRecorder) DueQuests(ctx, now any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DueQuests", reflect.TypeOf((*MockStore)(nil).DueQuests), ctx, now)
}

// MarkChapterPosted mocks base method.
func (m *MockStore) MarkChapterPosted(ctx context.Context, chapterID int64, tweetID string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MarkChapterPosted", ctx, chapterID, tweetID)
	ret0, _ := ret[0].(error)
	return ret0
}

// MarkChapterPosted indicates an expected call of MarkChapterPosted.
func (mr *MockStoreMockRecorder) MarkChapterPosted(ctx, chapterID, tweetID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MarkChapterPosted", reflect.TypeOf((*MockStore)(nil).MarkChapterPosted), ctx, chapterID, tweetID)
}

// QuestByID mocks base method.
func (m *MockStore) QuestByID(ctx context.Context, id int64) (*models.Quest, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "QuestByID", ctx, id)
	ret0, _ := ret[0].(*models.Quest)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// QuestByID indicates an expected call of QuestByID.
func (mr *MockStoreMockRecorder) QuestByID(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "QuestByID", reflect.TypeOf((*MockStore)(nil).QuestByID), ctx, id)
}

// QuestVotes mocks base method.
func (m *MockStore) QuestVotes(ctx context.Context, questID int64) ([]*models.QuestVote, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "QuestVotes", ctx, questID)
	ret0, _ := ret[0].([]*models.QuestVote)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// QuestVotes indicates an expected call of QuestVotes.
func (mr *MockStoreMockRecorder) QuestVotes(ctx, questID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "QuestVotes", reflect.TypeOf((*MockStore)(nil).QuestVotes), ctx, questID)
}

// ReleaseLease mocks base method.
func (m *MockStore) ReleaseLease(ctx context.Context, questID int64, owner string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ReleaseLease", ctx, questID, owner)
	ret0, _ := ret[0].(error)
	return ret0
}

// ReleaseLease indicates an expected call of ReleaseLease.
func (mr *MockStoreMockRecorder) ReleaseLease(ctx, questID, owner any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ReleaseLease", reflect.TypeOf((*MockStore)(nil).ReleaseLease), ctx, questID, owner)
}

// UpdateQuest mocks base method.
func (m *MockStore) UpdateQuest(ctx context.Context, quest *models.Quest) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "UpdateQuest", ctx, quest)
	ret0, _ := ret[0].(error)
	return ret0
}

// UpdateQuest indicates an expected call of UpdateQuest.
func (mr *MockStoreMockRecorder) UpdateQuest(ctx, quest any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UpdateQuest", reflect.TypeOf((*MockStore)(nil).UpdateQuest), ctx, quest)
}

// VotesForChapter mocks base method.
func (m *MockStore) VotesForChapter(ctx context.Context, chapterID int64, castBefore time.Time) ([]*models.ChapterVote, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "VotesForChapter", ctx, chapterID, castBefore)
	ret0, _ := ret[0].([]*models.ChapterVote)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// VotesForChapter indicates an expected call of VotesForChapter.
func (mr *MockStoreMockRecorder) VotesForChapter(ctx, chapterID, castBefore any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "VotesForChapter", reflect.TypeOf((*MockStore)(nil).VotesForChapter), ctx, chapterID, castBefore)
}
