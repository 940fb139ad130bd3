package e2e

import (
	"context"
	"fmt"
	"time"

	"synergy/client"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

const password = "E2ePassw0rd"

type BaseChatSuite struct {
	suite.Suite
	Config Config
	API    *client.API
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("CHAT_SERVER_ADDR is not set")
	}
	s.API = client.NewAPI(s.Config.ServerAddr, nil)
}

// Step prints a header so the steps stand out in verbose output
func (s *BaseChatSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// NewUser registers a throwaway account; emails are unique per run
func (s *BaseChatSuite) NewUser(ctx context.Context, name string) client.Auth {
	email := fmt.Sprintf("%s-%s@e2e.synergy.io", name, uuid.NewString()[:8])
	auth, err := s.API.Register(ctx, name, email, password)
	s.Require().NoError(err, "register %s", name)
	return auth
}

func (s *BaseChatSuite) Dial(ctx context.Context, token, projectID string) (*client.Client, error) {
	return client.Dial(ctx, logs.GetLoggerFromString(s.Config.LogLevel), s.Config.ServerAddr, token, projectID)
}

// NextEvent waits for the next group event of c
func (s *BaseChatSuite) NextEvent(c *client.Client) client.Event {
	select {
	case e, ok := <-c.Events():
		s.Require().True(ok, "connection closed while waiting for an event")
		if s.Config.DebugJSON {
			s.T().Logf("EVENT %s: %+v %+v %+v", e.Name, e.Message, e.UserLeft, e.Error)
		}
		return e
	case <-time.After(5 * time.Second):
		s.Require().FailNow("no event received")
	}
	return client.Event{}
}
