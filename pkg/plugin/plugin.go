// Package plugin exposes the mediation SDK to scripts as a Lua library with
// init, load, show and isLoaded, and follows the host runtime lifecycle.
package plugin

import (
	"fmt"
	"log/slog"
	"strings"

	"adsbridge/pkg/config"
	"adsbridge/pkg/dispatch"
	"adsbridge/pkg/event"
	"adsbridge/pkg/host"
	"adsbridge/pkg/listener"
	"adsbridge/pkg/mediation"
)

const (
	sigInit     = "init(listener, options)"
	sigLoad     = "load(adUnitType, userId)"
	sigShow     = "show(adUnitType, [placementId])"
	sigIsLoaded = "isLoaded(adUnitType)"
)

// Options are the settings accepted by init.
type Options struct {
	AppKey              string
	UserID              string
	ClientSideCallbacks bool
	TestMode            bool
	HasUserConsent      bool
}

// DefaultOptions returns init defaults for everything but the app key.
func DefaultOptions() Options {
	return Options{ClientSideCallbacks: true}
}

type Plugin struct {
	cfg        config.PluginConfig
	name       string
	sdk        mediation.SDK
	activity   *host.Activity
	dispatcher *dispatch.Dispatcher
	adapters   listener.Set
	log        *slog.Logger
}

var _ host.RuntimeListener = (*Plugin)(nil)

func New(cfg config.PluginConfig, sdk mediation.SDK, activity *host.Activity, dispatcher *dispatch.Dispatcher, log *slog.Logger) *Plugin {
	if log == nil {
		log = slog.Default()
	}

	return &Plugin{
		cfg:        cfg,
		name:       strings.TrimPrefix(cfg.LibraryName, "plugin."),
		sdk:        sdk,
		activity:   activity,
		dispatcher: dispatcher,
		adapters:   listener.NewSet(dispatcher),
		log:        log.With("component", "plugin"),
	}
}

// Install subscribes the plugin to runtime lifecycle events and makes the
// library requirable by scripts.
func (p *Plugin) Install(h *host.Host) {
	h.AddRuntimeListener(p)
	h.Preload(p.cfg.LibraryName, p.load)
}

// Initialized reports whether init has registered a listener.
func (p *Plugin) Initialized() bool {
	return p.dispatcher.Registered()
}

// Init registers listener and configures the SDK on the UI loop. A call made
// while a listener is registered changes nothing and returns
// ErrListenerRegistered; listener is then left to the caller to release.
func (p *Plugin) Init(listener *host.Ref, opts Options, hostBuild string) error {
	if p.Initialized() {
		return ErrListenerRegistered
	}
	if !listener.Valid() {
		return NewError(ErrorInvalidArguments, "listener expected, got nil")
	}
	if opts.AppKey == "" {
		return NewError(ErrorMissingOption, "options.appKey is missing")
	}
	if !p.dispatcher.Register(listener) {
		if p.Initialized() {
			return ErrListenerRegistered
		}
		return NewError(ErrorNotAttached, "no runtime is attached")
	}

	p.log.Info(fmt.Sprintf("%s: %s (SDK: %s)", p.cfg.LibraryName, p.cfg.Version, p.cfg.SDKVersion))

	p.activity.RunOnUIThread(func() {
		p.adapters.Install(p.sdk)

		p.sdk.SetPluginData(mediation.PluginData{
			Framework: p.cfg.HostFramework,
			Version:   p.cfg.Version,
			HostBuild: hostBuild,
		})
		p.sdk.SetClientSideCallbacks(opts.ClientSideCallbacks)
		if opts.UserID != "" {
			p.sdk.SetUserID(opts.UserID)
		}
		p.sdk.SetConsent(opts.HasUserConsent)

		p.sdk.Init(opts.AppKey)

		p.dispatcher.Dispatch(event.New(event.PhaseInit, ""))

		if opts.TestMode {
			p.sdk.ValidateIntegration()
		}
	})
	return nil
}

// Load prepares a surface. Offerwall and rewarded video load themselves, so
// they only report loaded when inventory is already available.
func (p *Plugin) Load(adUnitType, userID string) error {
	if !p.Initialized() {
		return p.notInitialized()
	}
	unit, err := parseUnit(adUnitType)
	if err != nil {
		return err
	}

	p.activity.RunOnUIThread(func() {
		p.sdk.SetDynamicUserID(userID)

		switch unit {
		case event.OfferWall:
			if p.sdk.IsOfferwallAvailable() {
				p.dispatcher.Dispatch(event.New(event.PhaseLoaded, unit))
			}
		case event.RewardedVideo:
			if p.sdk.IsRewardedVideoAvailable() {
				p.dispatcher.Dispatch(event.New(event.PhaseLoaded, unit))
			}
		case event.Interstitial:
			p.sdk.LoadInterstitial()
		}
	})
	return nil
}

// Show dispatches displayed and then asks the SDK to present the surface.
// An empty placement selects the SDK default; offerwall has no placements.
func (p *Plugin) Show(adUnitType, placement string) error {
	if !p.Initialized() {
		return p.notInitialized()
	}
	unit, err := parseUnit(adUnitType)
	if err != nil {
		return err
	}

	p.activity.RunOnUIThread(func() {
		p.dispatcher.Dispatch(event.New(event.PhaseDisplayed, unit))

		switch unit {
		case event.OfferWall:
			p.sdk.ShowOfferwall()
		case event.Interstitial:
			p.sdk.ShowInterstitial(placement)
		case event.RewardedVideo:
			p.sdk.ShowRewardedVideo(placement)
		}
	})
	return nil
}

// IsLoaded reports SDK availability for a surface. Unsupported surfaces are
// reported as not loaded without querying the SDK.
func (p *Plugin) IsLoaded(adUnitType string) (bool, error) {
	if !p.Initialized() {
		return false, p.notInitialized()
	}
	unit, err := parseUnit(adUnitType)
	if err != nil {
		return false, err
	}

	switch unit {
	case event.OfferWall:
		return p.sdk.IsOfferwallAvailable(), nil
	case event.Interstitial:
		return p.sdk.IsInterstitialReady(), nil
	default:
		return p.sdk.IsRewardedVideoAvailable(), nil
	}
}

func (p *Plugin) notInitialized() error {
	return newErrorf(ErrorNotInitialized, "you must call %s.init() before making any other %s.* Api calls", p.name, p.name)
}

func parseUnit(adUnitType string) (event.AdUnitType, error) {
	unit, ok := event.ParseAdUnitType(adUnitType)
	if !ok {
		return "", newErrorf(ErrorUnsupportedAdUnit, "Unsupported adUnitType. Valid options are: %s, %s, %s",
			event.OfferWall, event.Interstitial, event.RewardedVideo)
	}
	return unit, nil
}

// report logs a caller error the way scripts expect to find it.
func (p *Plugin) report(signature string, err error) {
	p.log.Warn(fmt.Sprintf("ERROR: %s.%s %s", p.name, signature, DetailOf(err)), "category", CategoryOf(err))
}
