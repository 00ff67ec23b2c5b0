package services

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"simdash/internal/sources"
)

// MockSourceOpener is a mock for the SourceOpener interface
type MockSourceOpener struct {
	mock.Mock
}

func (m *MockSourceOpener) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockSourceOpener) OpenDataSource(ctx context.Context, id string) (io.ReadCloser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockSourceOpener) List(ctx context.Context) ([]sources.DataSource, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sources.DataSource), args.Error(1)
}
