package bridge

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Shopify/go-lua"
	"github.com/stretchr/testify/require"

	"adsbridge/pkg/bus"
	"adsbridge/pkg/config"
	"adsbridge/pkg/event"
	"adsbridge/pkg/journal"
	"adsbridge/pkg/logger"
	"adsbridge/pkg/mediation/sandbox"
)

const script = `
local supersonic = require("plugin.supersonic")

delivered = 0
lastPhase = ""

local function listener(event)
  delivered = delivered + 1
  lastPhase = event.phase
end

supersonic.init(listener, { appKey = "sandbox-key", userId = "player-1" })

function showOfferwall()
  supersonic.show("offerWall")
end
`

type deliveryLog struct {
	mu    sync.Mutex
	items []bus.Delivery
}

func (l *deliveryLog) add(d bus.Delivery) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, d)
}

func (l *deliveryLog) has(status bus.Status, phase event.Phase, unit event.AdUnitType) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, d := range l.items {
		if d.Status == status && d.Event.Phase() == phase && d.Event.Type() == unit {
			return true
		}
	}
	return false
}

func (l *deliveryLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *deliveryLog) count(phase event.Phase, unit event.AdUnitType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, d := range l.items {
		if d.Event.Phase() == phase && d.Event.Type() == unit {
			n++
		}
	}
	return n
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Sandbox.LatencyMillis = 0
	cfg.Journal.Enabled = true
	cfg.Journal.Path = filepath.Join(t.TempDir(), "bridge.db")
	return &cfg
}

func startSession(t *testing.T, cfg *config.Config, opts Options) (*Session, *deliveryLog) {
	t.Helper()

	s, err := Start(context.Background(), cfg, logger.Discard(), opts)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	log := &deliveryLog{}
	deliveries, unsubscribe := s.Bus().SubscribeDeliveries(context.Background(), 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for d := range deliveries {
			log.add(d)
		}
	}()
	t.Cleanup(func() {
		unsubscribe()
		<-done
	})

	return s, log
}

func waitFor(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond, msg)
}

// luaInt reads an integer global from the running script, or -1.
func luaInt(s *Session, name string) int {
	value := -1
	_ = s.Runtime().Exec(context.Background(), func(state *lua.State) error {
		state.Global(name)
		if n, ok := state.ToInteger(-1); ok {
			value = n
		}
		return nil
	})
	return value
}

func TestSessionEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	s, deliveries := startSession(t, cfg, Options{ObserveDeliveries: true})
	ctx := context.Background()

	require.NoError(t, s.Run(ctx, "main.lua", script))

	waitFor(t, "init delivered", func() bool { return deliveries.has(bus.StatusDelivered, event.PhaseInit, "") })
	waitFor(t, "offerwall availability", func() bool {
		return deliveries.has(bus.StatusDelivered, event.PhaseLoaded, event.OfferWall)
	})
	waitFor(t, "rewarded video availability", func() bool {
		return deliveries.has(bus.StatusDelivered, event.PhaseLoaded, event.RewardedVideo)
	})

	state := s.Sandbox().State()
	require.Equal(t, "sandbox-key", state.AppKey)
	require.Equal(t, "player-1", state.UserID)
	require.Equal(t, cfg.Host.Build, state.PluginData.HostBuild)

	require.True(t, s.Submit(ctx, bus.Command{Action: bus.ActionLoad, Unit: event.Interstitial, UserID: "player-1"}))
	waitFor(t, "interstitial loaded", func() bool {
		return deliveries.has(bus.StatusDelivered, event.PhaseLoaded, event.Interstitial)
	})

	require.True(t, s.Submit(ctx, bus.Command{Action: bus.ActionShow, Unit: event.Interstitial}))
	waitFor(t, "interstitial closed", func() bool {
		return deliveries.has(bus.StatusDelivered, event.PhaseClosed, event.Interstitial)
	})
	require.True(t, deliveries.has(bus.StatusDelivered, event.PhaseDisplayed, event.Interstitial))

	require.True(t, s.Submit(ctx, bus.Command{Action: bus.ActionCall, Function: "showOfferwall"}))
	waitFor(t, "offerwall credited", func() bool {
		return deliveries.has(bus.StatusDelivered, event.PhaseRewarded, event.OfferWall)
	})
	waitFor(t, "offerwall closed", func() bool {
		return deliveries.has(bus.StatusDelivered, event.PhaseClosed, event.OfferWall)
	})

	waitFor(t, "script saw every delivery", func() bool {
		return luaInt(s, "delivered") >= 8
	})

	waitFor(t, "journal caught up", func() bool {
		entries, err := s.Journal().Recent(ctx, journal.Filter{Status: bus.StatusDelivered, Limit: 100})
		return err == nil && len(entries) >= 8
	})
}

func TestSessionSuspendResumeReachesSDK(t *testing.T) {
	s, _ := startSession(t, testConfig(t), Options{})
	ctx := context.Background()
	require.NoError(t, s.Run(ctx, "main.lua", script))

	require.NoError(t, s.Execute(ctx, bus.Command{Action: bus.ActionSuspend}))
	waitFor(t, "sdk paused", func() bool { return s.Sandbox().State().Paused })

	require.NoError(t, s.Execute(ctx, bus.Command{Action: bus.ActionResume}))
	waitFor(t, "sdk resumed", func() bool { return !s.Sandbox().State().Paused })
}

func TestSessionFillCommandAnnouncesAvailability(t *testing.T) {
	s, deliveries := startSession(t, testConfig(t), Options{})
	ctx := context.Background()
	require.NoError(t, s.Run(ctx, "main.lua", script))
	waitFor(t, "rewarded video loaded", func() bool {
		return deliveries.has(bus.StatusDelivered, event.PhaseLoaded, event.RewardedVideo)
	})

	require.NoError(t, s.Execute(ctx, bus.Command{Action: bus.ActionFill, Unit: event.RewardedVideo, Enabled: false}))
	waitFor(t, "no fill reported", func() bool {
		return deliveries.has(bus.StatusDelivered, event.PhaseFailed, event.RewardedVideo)
	})

	loaded, err := s.Plugin().IsLoaded("rewardedVideo")
	require.NoError(t, err)
	require.False(t, loaded)
}

func TestSessionClickCommand(t *testing.T) {
	s, deliveries := startSession(t, testConfig(t), Options{})
	ctx := context.Background()
	require.NoError(t, s.Run(ctx, "main.lua", script))
	waitFor(t, "init delivered", func() bool { return deliveries.has(bus.StatusDelivered, event.PhaseInit, "") })

	require.NoError(t, s.Execute(ctx, bus.Command{Action: bus.ActionClick, Unit: event.Interstitial}))
	waitFor(t, "click delivered", func() bool {
		return deliveries.has(bus.StatusDelivered, event.PhaseClicked, event.Interstitial)
	})
	require.Equal(t, 1, deliveries.count(event.PhaseClicked, event.Interstitial))
}

func TestSessionCommandErrors(t *testing.T) {
	custom := sandbox.New(config.Default().Sandbox, logger.Discard())
	t.Cleanup(custom.Close)

	cfg := testConfig(t)
	cfg.Journal.Enabled = false
	s, _ := startSession(t, cfg, Options{SDK: custom})
	ctx := context.Background()

	require.Nil(t, s.Sandbox())
	require.Nil(t, s.Journal())
	require.ErrorIs(t, s.Execute(ctx, bus.Command{Action: bus.ActionFill, Unit: event.OfferWall}), ErrNoSandbox)
	require.ErrorIs(t, s.Execute(ctx, bus.Command{Action: bus.ActionClick, Unit: event.OfferWall}), ErrNoSandbox)
	require.Error(t, s.Execute(ctx, bus.Command{Action: "explode"}))
	require.Error(t, s.Execute(ctx, bus.Command{Action: bus.ActionCall}))

	// Not initialized yet: the plugin refuses surface commands.
	require.Error(t, s.Execute(ctx, bus.Command{Action: bus.ActionShow, Unit: event.Interstitial}))

	// Suspend is only valid once the script is running.
	require.Error(t, s.Execute(ctx, bus.Command{Action: bus.ActionSuspend}))
}

func TestSessionScriptErrorIsReported(t *testing.T) {
	cfg := testConfig(t)
	cfg.Journal.Enabled = false
	s, _ := startSession(t, cfg, Options{})

	err := s.Run(context.Background(), "broken.lua", "this is not lua")
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken.lua")
}

func TestStartRejectsBadJournalPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Journal.Path = " "

	_, err := Start(context.Background(), cfg, logger.Discard(), Options{})
	require.Error(t, err)
}

func TestCloseDetachesDeliveryChannel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Journal.Enabled = false
	s, err := Start(context.Background(), cfg, logger.Discard(), Options{})
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), "main.lua", script))
	require.True(t, s.Dispatcher().Registered())

	s.Close()
	s.Close()

	require.Nil(t, s.Dispatcher().Current())
	require.False(t, s.Bus().PublishCommand(context.Background(), bus.Command{Action: bus.ActionLoad}))
}

func TestCloseJournalsEveryPublishedDelivery(t *testing.T) {
	cfg := testConfig(t)
	s, deliveries := startSession(t, cfg, Options{})
	ctx := context.Background()
	require.NoError(t, s.Run(ctx, "main.lua", script))

	waitFor(t, "rewarded video availability", func() bool {
		return deliveries.has(bus.StatusDelivered, event.PhaseLoaded, event.RewardedVideo)
	})
	for range 5 {
		require.NoError(t, s.Execute(ctx, bus.Command{Action: bus.ActionLoad, Unit: event.OfferWall}))
	}
	s.Close()

	j, err := journal.Open(cfg.Journal.Path, logger.Discard())
	require.NoError(t, err)
	defer j.Close()

	entries, err := j.Recent(ctx, journal.Filter{Limit: 1000})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(entries), 3)
	waitFor(t, "observer drained", func() bool { return deliveries.len() == len(entries) })
}
