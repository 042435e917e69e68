// Package testutil provides fakes shared by the engine, router and transport
// tests.
package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/cache"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/view"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// MockHost is a mock of the host surface API.
type MockHost struct {
	mock.Mock
}

// CreateSurface mocks surface creation. A stubbed empty handle is replaced by
// a fresh ULID handle so every surface is distinct.
func (m *MockHost) CreateSurface(layout types.Layout, title string) (types.SurfaceHandle, error) {
	args := m.Called(layout, title)
	if err := args.Error(1); err != nil {
		return "", err
	}
	if h, ok := args.Get(0).(types.SurfaceHandle); ok && h != "" {
		return h, nil
	}
	return id.NewSurfaceHandle(), nil
}

// OpenSurface mocks showing a view to an identity.
func (m *MockHost) OpenSurface(identity types.Identity, v *view.View) error {
	return m.Called(identity, v).Error(0)
}

// CloseSurface mocks closing the identity's surface.
func (m *MockHost) CloseSurface(identity types.Identity) error {
	return m.Called(identity).Error(0)
}

// SendMessage mocks a chat message to the identity.
func (m *MockHost) SendMessage(identity types.Identity, text string) error {
	return m.Called(identity, text).Error(0)
}

// Opened returns the views opened for identity, in order.
func (m *MockHost) Opened(identity types.Identity) []*view.View {
	var out []*view.View
	for _, call := range m.Calls {
		if call.Method == "OpenSurface" && call.Arguments.Get(0) == identity {
			out = append(out, call.Arguments.Get(1).(*view.View))
		}
	}
	return out
}

// Messages returns the texts sent to identity, in order.
func (m *MockHost) Messages(identity types.Identity) []string {
	var out []string
	for _, call := range m.Calls {
		if call.Method == "SendMessage" && call.Arguments.Get(0) == identity {
			out = append(out, call.Arguments.String(1))
		}
	}
	return out
}

// NewMockHost creates a host whose calls all succeed.
func NewMockHost(t *testing.T) *MockHost {
	t.Helper()
	m := new(MockHost)
	m.On("CreateSurface", mock.Anything, mock.Anything).Return(types.SurfaceHandle(""), nil).Maybe()
	m.On("OpenSurface", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("CloseSurface", mock.Anything).Return(nil).Maybe()
	m.On("SendMessage", mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// MockPermissions is a mock permission oracle.
type MockPermissions struct {
	mock.Mock
}

// HasPermission mocks the permission check.
func (m *MockPermissions) HasPermission(identity types.Identity, key string) bool {
	return m.Called(identity, key).Bool(0)
}

// Titles is a localizer that returns templates unchanged.
type Titles struct{}

// ReplaceKeys returns template.
func (Titles) ReplaceKeys(template string) string { return template }

// NewSession creates a standalone session with an empty cache.
func NewSession(t *testing.T) *session.Session {
	t.Helper()
	p, err := cache.NewProvider(nil)
	require.NoError(t, err)
	c, err := p.New()
	require.NoError(t, err)
	return session.New(uuid.New(), c)
}

// Item creates a single item of key.
func Item(key string, amount int) *types.Item {
	return &types.Item{Key: key, Amount: amount}
}

// MockNavigator is a mock of button.Navigator.
type MockNavigator struct {
	mock.Mock
}

func (m *MockNavigator) OpenCluster(s *session.Session, clusterID string) error {
	return m.Called(s, clusterID).Error(0)
}

func (m *MockNavigator) ChangeWindow(s *session.Session, key types.Key) error {
	return m.Called(s, key).Error(0)
}

func (m *MockNavigator) Back(s *session.Session) error {
	return m.Called(s).Error(0)
}

func (m *MockNavigator) Close(s *session.Session) error {
	return m.Called(s).Error(0)
}

func (m *MockNavigator) RunChat(s *session.Session, captureID int, prompt string) error {
	return m.Called(s, captureID, prompt).Error(0)
}

func (m *MockNavigator) Update(s *session.Session, force bool) {
	m.Called(s, force)
}

func (m *MockNavigator) HasPermission(identity types.Identity, key string) bool {
	return m.Called(identity, key).Bool(0)
}
