package execution

import (
	"context"

	copilot "github.com/github/copilot-sdk/go"
)

//go:generate go tool mockgen -source=copilot_client_wrappers.go -destination=copilot_client_mocks_test.go -package=execution

// copilotSession is the part of [*copilot.Session] the engine drives.
type copilotSession interface {
	On(handler copilot.SessionEventHandler) func()
	SendAndWait(ctx context.Context, options copilot.MessageOptions) (*copilot.SessionEvent, error)
	SessionID() string
}

// copilotClient is the part of [*copilot.Client] the engine drives.
type copilotClient interface {
	CreateSession(ctx context.Context, config *copilot.SessionConfig) (copilotSession, error)
	Start(ctx context.Context) error
	Stop() error
}

var (
	_ copilotClient  = (*sdkClient)(nil)
	_ copilotSession = (*sdkSession)(nil)
)

func newCopilotClient(clientOptions *copilot.ClientOptions) copilotClient {
	return &sdkClient{inner: copilot.NewClient(clientOptions)}
}

// textOnlySession returns the session config used for every generation: the
// agent works in dir and may not run any tool, so only its text comes back.
func textOnlySession(model, dir string) *copilot.SessionConfig {
	return &copilot.SessionConfig{
		Model:               model,
		OnPermissionRequest: denyAllTools,
		WorkingDirectory:    dir,
	}
}

func denyAllTools(request copilot.PermissionRequest, invocation copilot.PermissionInvocation) (copilot.PermissionRequestResult, error) {
	return copilot.PermissionRequestResult{Kind: "denied-interactively-by-user"}, nil
}

type sdkClient struct {
	inner *copilot.Client
}

func (c *sdkClient) CreateSession(ctx context.Context, config *copilot.SessionConfig) (copilotSession, error) {
	sess, err := c.inner.CreateSession(ctx, config)
	if err != nil {
		return nil, err
	}
	return &sdkSession{inner: sess}, nil
}

func (c *sdkClient) Start(ctx context.Context) error { return c.inner.Start(ctx) }

func (c *sdkClient) Stop() error { return c.inner.Stop() }

// sdkSession exists because the SDK exposes the session ID as a field.
type sdkSession struct {
	inner *copilot.Session
}

func (s *sdkSession) On(handler copilot.SessionEventHandler) func() { return s.inner.On(handler) }

func (s *sdkSession) SendAndWait(ctx context.Context, options copilot.MessageOptions) (*copilot.SessionEvent, error) {
	return s.inner.SendAndWait(ctx, options)
}

func (s *sdkSession) SessionID() string { return s.inner.SessionID }
