package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/MikeSquared-Agency/Admissions/internal/ranking"
	"github.com/MikeSquared-Agency/Admissions/internal/store"
)

// MockStore stubs the store calls the error paths reach. Any other call
// panics through the nil embedded interface.
type MockStore struct {
	store.Store
	mock.Mock
}

func (m *MockStore) CreatePeriod(ctx context.Context, p *store.Period, criteria []*store.Criterion) error {
	args := m.Called(ctx, p, criteria)
	return args.Error(0)
}

func (m *MockStore) GetPeriod(ctx context.Context, id uuid.UUID) (*store.Period, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Period), args.Error(1)
}

func (m *MockStore) GetPeriodInputs(ctx context.Context, id uuid.UUID) (*store.PeriodInputs, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.PeriodInputs), args.Error(1)
}

func (m *MockStore) ListPeriods(ctx context.Context) ([]*store.Period, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Period), args.Error(1)
}

func (m *MockStore) DeletePeriod(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func setupMockRouter(ms *MockStore) http.Handler {
	svc := ranking.NewService(ms, nil, ranking.Options{}, testLogger())
	return NewRouter(ms, svc, nil, testConfig(), testLogger())
}

func TestStoreErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"conflict", fmt.Errorf("%w: period name exists", store.ErrConflict), http.StatusConflict},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ms := new(MockStore)
			ms.On("CreatePeriod", mock.Anything, mock.Anything, mock.Anything).Return(tc.err)

			w := do(t, setupMockRouter(ms), "POST", "/api/v1/periods", `{"name":"2025"}`)
			assert.Equal(t, tc.want, w.Code)
			ms.AssertExpectations(t)
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	ms := new(MockStore)
	ms.On("ListPeriods", mock.Anything).Return(nil, errors.New("dial tcp 10.0.0.5:5432: refused"))

	w := do(t, setupMockRouter(ms), "GET", "/api/v1/periods", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}

func TestRankingStoreFailureIs500(t *testing.T) {
	ms := new(MockStore)
	id := uuid.New()
	ms.On("GetPeriodInputs", mock.Anything, id).Return(nil, errors.New("timeout"))

	w := do(t, setupMockRouter(ms), "GET", "/api/v1/periods/"+id.String()+"/ranking", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	ms.AssertCalled(t, "GetPeriodInputs", mock.Anything, id)
}

func TestCreatePeriodValidationSkipsStore(t *testing.T) {
	ms := new(MockStore)

	w := do(t, setupMockRouter(ms), "POST", "/api/v1/periods", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	ms.AssertNotCalled(t, "CreatePeriod", mock.Anything, mock.Anything, mock.Anything)
}
