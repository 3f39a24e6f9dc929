// Package mocks holds a gomock double for recorder.Store, written in
// mockgen's output layout. Running go generate in internal/recorder
// replaces this file with mockgen's own output.
package mocks

import (
	context "context"
	reflect "reflect"
	time "time"

	recorder "hellscape/internal/recorder"

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

// AppendEvents mocks base method.
func (m *MockStore) AppendEvents(ctx context.Context, events []recorder.EventRecord) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AppendEvents", ctx, events)
	ret0, _ := ret[0].(error)
	return ret0
}

// AppendEvents indicates an expected call of AppendEvents.
func (mr *MockStoreMockRecorder) AppendEvents(ctx, events any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AppendEvents", reflect.TypeOf((*MockStore)(nil).AppendEvents), ctx, events)
}

// AppendTickSummaries mocks base method.
func (m *MockStore) AppendTickSummaries(ctx context.Context, ticks []recorder.TickSummary) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AppendTickSummaries", ctx, ticks)
	ret0, _ := ret[0].(error)
	return ret0
}

// AppendTickSummaries indicates an expected call of AppendTickSummaries.
func (mr *MockStoreMockRecorder) AppendTickSummaries(ctx, ticks any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AppendTickSummaries", reflect.TypeOf((*MockStore)(nil).AppendTickSummaries), ctx, ticks)
}

// Close mocks base method.
func (m *MockStore) Close() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close")
	ret0, _ := ret[0].(error)
	return ret0
}

// Close indicates an expected call of Close.
func (mr *MockStoreMockRecorder) Close() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close", reflect.TypeOf((*MockStore)(nil).Close))
}

// CreateMatch mocks base method.
func (m *MockStore) CreateMatch(ctx context.Context, m2 *recorder.Match) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CreateMatch", ctx, m2)
	ret0, _ := ret[0].(error)
	return ret0
}

// CreateMatch indicates an expected call of CreateMatch.
func (mr *MockStoreMockRecorder) CreateMatch(ctx, m any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreateMatch", reflect.TypeOf((*MockStore)(nil).CreateMatch), ctx, m)
}

// FinishMatch mocks base method.
func (m *MockStore) FinishMatch(ctx context.Context, id string, endedAt time.Time, ticks int64, score int) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "FinishMatch", ctx, id, endedAt, ticks, score)
	ret0, _ := ret[0].(error)
	return ret0
}

// FinishMatch indicates an expected call of FinishMatch.
func (mr *MockStoreMockRecorder) FinishMatch(ctx, id, endedAt, ticks, score any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "FinishMatch", reflect.TypeOf((*MockStore)(nil).FinishMatch), ctx, id, endedAt, ticks, score)
}
