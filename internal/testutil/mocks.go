// Package testutil provides testify mocks for the interfaces of the
// converter library and the worktime session, plus small file helpers.
package testutil

import (
	"context"
	"time"

	"github.com/mkapulica/Time-is-Money/pkg/converter"
	"github.com/mkapulica/Time-is-Money/pkg/converter/cache"
	"github.com/mkapulica/Time-is-Money/pkg/worktime"
	"github.com/stretchr/testify/mock"
)

// MockCacheManager mocks converter.CacheManager. Check and Update are called
// from workers; testify's mock is safe for that.
type MockCacheManager struct {
	mock.Mock
}

func (m *MockCacheManager) Load(cachePath string) error {
	args := m.Called(cachePath)
	return args.Error(0)
}

func (m *MockCacheManager) Check(filePath string, modTime time.Time, contentHash, configHash string) (cache.Entry, bool) {
	args := m.Called(filePath, modTime, contentHash, configHash)
	entry, _ := args.Get(0).(cache.Entry)
	return entry, args.Bool(1)
}

func (m *MockCacheManager) Update(filePath string, entry cache.Entry) error {
	args := m.Called(filePath, entry)
	return args.Error(0)
}

func (m *MockCacheManager) Persist(cachePath string) error {
	args := m.Called(cachePath)
	return args.Error(0)
}

// MockLanguageDetector mocks language.LanguageDetector.
type MockLanguageDetector struct {
	mock.Mock
}

func (m *MockLanguageDetector) Detect(content []byte, filePath string) (string, float64, error) {
	args := m.Called(content, filePath)
	lang, _ := args.Get(0).(string)
	confidence, _ := args.Get(1).(float64)
	return lang, confidence, args.Error(2)
}

// MockEncodingHandler mocks encoding.EncodingHandler.
type MockEncodingHandler struct {
	mock.Mock
}

func (m *MockEncodingHandler) DetectAndDecode(content []byte, contentType string) ([]byte, string, bool, error) {
	args := m.Called(content, contentType)
	out, _ := args.Get(0).([]byte)
	enc, _ := args.Get(1).(string)
	return out, enc, args.Bool(2), args.Error(3)
}

func (m *MockEncodingHandler) IsBinary(content []byte) bool {
	args := m.Called(content)
	return args.Bool(0)
}

// MockHooks mocks converter.Hooks.
type MockHooks struct {
	mock.Mock
}

func (m *MockHooks) OnFileDiscovered(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockHooks) OnFileStatusUpdate(path string, status converter.Status, message string, prices int, duration time.Duration) error {
	args := m.Called(path, status, message, prices, duration)
	return args.Error(0)
}

func (m *MockHooks) OnRunComplete(report converter.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

// MockSettingsSource mocks session.SettingsSource. Return(nil, err) is
// supported.
type MockSettingsSource struct {
	mock.Mock
}

func (m *MockSettingsSource) LoadSettings(ctx context.Context) (*worktime.Settings, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*worktime.Settings)
	return s, args.Error(1)
}

// MockWageSource mocks session.WageSource.
type MockWageSource struct {
	mock.Mock
}

func (m *MockWageSource) Wage(ctx context.Context) (worktime.Wage, error) {
	args := m.Called(ctx)
	w, _ := args.Get(0).(worktime.Wage)
	return w, args.Error(1)
}
