package bridge

import (
	"context"
	"errors"
	"fmt"

	"adsbridge/pkg/bus"
)

// ErrNoSandbox is returned for sandbox-only commands when a custom SDK is in use.
var ErrNoSandbox = errors.New("sandbox SDK is not in use")

// Submit queues cmd for the command worker.
func (s *Session) Submit(ctx context.Context, cmd bus.Command) bool {
	return s.bus.PublishCommand(ctx, cmd)
}

// Execute applies one operator command to the session.
func (s *Session) Execute(ctx context.Context, cmd bus.Command) error {
	switch cmd.Action {
	case bus.ActionLoad:
		return s.plugin.Load(string(cmd.Unit), cmd.UserID)
	case bus.ActionShow:
		return s.plugin.Show(string(cmd.Unit), cmd.Placement)
	case bus.ActionSuspend:
		return s.runtime.Suspend(ctx)
	case bus.ActionResume:
		return s.runtime.Resume(ctx)
	case bus.ActionFill:
		if s.sandbox == nil {
			return ErrNoSandbox
		}
		s.sandbox.SetFill(cmd.Unit, cmd.Enabled)
		return nil
	case bus.ActionClick:
		if s.sandbox == nil {
			return ErrNoSandbox
		}
		s.sandbox.Click(cmd.Unit)
		return nil
	case bus.ActionCall:
		if cmd.Function == "" {
			return errors.New("call requires a function name")
		}
		return s.runtime.CallGlobal(ctx, cmd.Function)
	default:
		return fmt.Errorf("unknown command action %q", cmd.Action)
	}
}

func (s *Session) runCommandWorker(ctx context.Context) {
	log := s.log.With("component", "bridge.commands")

	for {
		cmd, ok := s.bus.ConsumeCommand(ctx)
		if !ok {
			return
		}

		if err := s.Execute(ctx, cmd); err != nil {
			log.Warn("Command failed", "action", cmd.Action, "unit", cmd.Unit, "error", err)
			continue
		}
		log.Debug("Command applied", "action", cmd.Action, "unit", cmd.Unit)
	}
}
