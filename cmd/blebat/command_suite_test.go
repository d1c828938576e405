package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/srg/blebat/internal/device"
	"github.com/srg/blebat/internal/devicefactory"
	"github.com/srg/blebat/internal/testutils"
	"github.com/srg/blebat/pkg/config"
)

// CommandTestSuite runs the real command tree against the mocked adapter.
// All cmd/blebat test suites should embed this instead of MockAdapterSuite.
type CommandTestSuite struct {
	testutils.MockAdapterSuite

	originalFactory func(context.Context, *config.Config, *logrus.Logger) (device.Adapter, error)

	// LastConfig is the configuration the last adapter was opened with.
	LastConfig *config.Config
}

func (s *CommandTestSuite) SetupTest() {
	s.MockAdapterSuite.SetupTest()

	s.LastConfig = nil
	s.originalFactory = devicefactory.AdapterFactory
	devicefactory.AdapterFactory = func(ctx context.Context, cfg *config.Config, _ *logrus.Logger) (device.Adapter, error) {
		s.LastConfig = cfg
		return s.Opener()(ctx)
	}
}

func (s *CommandTestSuite) TearDownTest() {
	devicefactory.AdapterFactory = s.originalFactory
	s.MockAdapterSuite.TearDownTest()
}

// ExecuteCommand runs blebat with args and stdin, isolated from any user
// config file. Returns stdout, stderr and the command error.
func (s *CommandTestSuite) ExecuteCommand(stdin string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	if !containsFlag(args, "--config") {
		args = append(args, "--config", filepath.Join(s.T().TempDir(), "absent.yaml"))
	}
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(s.Helper.Context(s.TestTimeout))
	return stdout.String(), stderr.String(), err
}

func containsFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag || strings.HasPrefix(a, flag+"=") {
			return true
		}
	}
	return false
}
