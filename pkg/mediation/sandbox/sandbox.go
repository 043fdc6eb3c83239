// Package sandbox is an in-process mediation SDK. It keeps per-surface fill
// state and replays the callback sequences a real SDK produces, on its own
// callback loop, so the bridge can run locally and in tests.
package sandbox

import (
	"log/slog"
	"sync"
	"time"

	"adsbridge/pkg/config"
	"adsbridge/pkg/event"
	"adsbridge/pkg/mediation"
	"adsbridge/pkg/runloop"
)

const (
	DefaultInterstitialPlacement  = "DefaultInterstitial"
	DefaultRewardedVideoPlacement = "DefaultRewardedVideo"

	errCodeNoFill        = 509
	errCodeNotReady      = 520
	errCodeNotInitialize = 508
)

// SDK implements mediation.SDK.
type SDK struct {
	cfg       config.SandboxConfig
	log       *slog.Logger
	callbacks *runloop.Loop

	mu                sync.Mutex
	offerwall         mediation.OfferwallListener
	interstitial      mediation.InterstitialListener
	rewardedVideo     mediation.RewardedVideoListener
	fill              map[event.AdUnitType]bool
	initialized       bool
	appKey            string
	userID            string
	dynamicUserID     string
	consent           bool
	clientSide        bool
	pluginData        mediation.PluginData
	paused            bool
	interstitialReady bool
	totalCredits      int
	validations       int
}

var _ mediation.SDK = (*SDK)(nil)

func New(cfg config.SandboxConfig, log *slog.Logger) *SDK {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "sandbox")

	return &SDK{
		cfg:       cfg,
		log:       log,
		callbacks: runloop.New("sdk", 0, log),
		fill: map[event.AdUnitType]bool{
			event.OfferWall:     cfg.Fill.OfferWall,
			event.Interstitial:  cfg.Fill.Interstitial,
			event.RewardedVideo: cfg.Fill.RewardedVideo,
		},
	}
}

// Close stops the callback loop. Pending callbacks are discarded.
func (s *SDK) Close() {
	s.callbacks.Close()
}

func (s *SDK) SetOfferwallListener(l mediation.OfferwallListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offerwall = l
}

func (s *SDK) SetInterstitialListener(l mediation.InterstitialListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interstitial = l
}

func (s *SDK) SetRewardedVideoListener(l mediation.RewardedVideoListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewardedVideo = l
}

func (s *SDK) SetPluginData(data mediation.PluginData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pluginData = data
}

func (s *SDK) SetClientSideCallbacks(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientSide = enabled
}

func (s *SDK) SetUserID(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
}

func (s *SDK) SetDynamicUserID(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dynamicUserID = userID
}

func (s *SDK) SetConsent(consent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consent = consent
}

// Init marks the SDK initialized and reports initial availability for the
// surfaces that announce it on their own.
func (s *SDK) Init(appKey string) {
	s.mu.Lock()
	s.initialized = true
	s.appKey = appKey
	offerwallFill := s.fill[event.OfferWall]
	rewardedFill := s.fill[event.RewardedVideo]
	s.mu.Unlock()

	s.log.Info("Sandbox SDK initialized", "app_key", appKey)

	s.emitOfferwall(func(l mediation.OfferwallListener) { l.OnOfferwallAvailable(offerwallFill) })
	s.emitRewardedVideo(func(l mediation.RewardedVideoListener) { l.OnRewardedVideoAvailabilityChanged(rewardedFill) })
}

func (s *SDK) LoadInterstitial() {
	s.mu.Lock()
	initialized := s.initialized
	filled := s.fill[event.Interstitial]
	if initialized && filled {
		s.interstitialReady = true
	}
	s.mu.Unlock()

	switch {
	case !initialized:
		s.emitInterstitial(func(l mediation.InterstitialListener) {
			l.OnInterstitialAdLoadFailed(&mediation.Error{Code: errCodeNotInitialize, Message: "Init was not called"})
		})
	case !filled:
		s.emitInterstitial(func(l mediation.InterstitialListener) {
			l.OnInterstitialAdLoadFailed(&mediation.Error{Code: errCodeNoFill, Message: "No ads to show"})
		})
	default:
		s.emitInterstitial(func(l mediation.InterstitialListener) { l.OnInterstitialAdReady() })
	}
}

func (s *SDK) ShowOfferwall() {
	if !s.IsOfferwallAvailable() {
		s.emitOfferwall(func(l mediation.OfferwallListener) {
			l.OnOfferwallShowFailed(&mediation.Error{Code: errCodeNoFill, Message: "Offerwall is not available"})
		})
		return
	}

	s.mu.Lock()
	credits := s.cfg.Credits
	s.totalCredits += credits
	total := s.totalCredits
	s.mu.Unlock()

	s.emitOfferwall(func(l mediation.OfferwallListener) { l.OnOfferwallOpened() })
	if credits > 0 {
		s.emitOfferwall(func(l mediation.OfferwallListener) {
			if !l.OnOfferwallAdCredited(credits, total, false) {
				s.log.Debug("Offerwall credit not consumed", "credits", credits)
			}
		})
	}
	s.emitOfferwall(func(l mediation.OfferwallListener) { l.OnOfferwallClosed() })
}

func (s *SDK) ShowInterstitial(placement string) {
	if placement == "" {
		placement = DefaultInterstitialPlacement
	}

	s.mu.Lock()
	ready := s.interstitialReady
	s.interstitialReady = false
	s.mu.Unlock()

	if !ready {
		s.emitInterstitial(func(l mediation.InterstitialListener) {
			l.OnInterstitialAdShowFailed(&mediation.Error{Code: errCodeNotReady, Message: "Interstitial is not ready: " + placement})
		})
		return
	}

	s.emitInterstitial(func(l mediation.InterstitialListener) { l.OnInterstitialAdOpened() })
	s.emitInterstitial(func(l mediation.InterstitialListener) { l.OnInterstitialAdShowSucceeded() })
	s.emitInterstitial(func(l mediation.InterstitialListener) { l.OnInterstitialAdClosed() })
}

func (s *SDK) ShowRewardedVideo(placement string) {
	if placement == "" {
		placement = DefaultRewardedVideoPlacement
	}

	if !s.IsRewardedVideoAvailable() {
		s.emitRewardedVideo(func(l mediation.RewardedVideoListener) {
			l.OnRewardedVideoAdShowFailed(&mediation.Error{Code: errCodeNoFill, Message: "Rewarded video is not available: " + placement})
		})
		return
	}

	s.mu.Lock()
	reward := mediation.Placement{Name: placement, RewardName: s.cfg.RewardName, RewardAmount: s.cfg.RewardAmount}
	s.mu.Unlock()

	s.emitRewardedVideo(func(l mediation.RewardedVideoListener) { l.OnRewardedVideoAdOpened() })
	s.emitRewardedVideo(func(l mediation.RewardedVideoListener) { l.OnRewardedVideoAdStarted() })
	s.emitRewardedVideo(func(l mediation.RewardedVideoListener) { l.OnRewardedVideoAdEnded() })
	s.emitRewardedVideo(func(l mediation.RewardedVideoListener) { l.OnRewardedVideoAdRewarded(reward) })
	s.emitRewardedVideo(func(l mediation.RewardedVideoListener) { l.OnRewardedVideoAdClosed() })
	// Availability is re-announced once playback completes.
	s.emitRewardedVideo(func(l mediation.RewardedVideoListener) {
		l.OnRewardedVideoAvailabilityChanged(s.IsRewardedVideoAvailable())
	})
}

func (s *SDK) IsOfferwallAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized && s.fill[event.OfferWall]
}

func (s *SDK) IsInterstitialReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interstitialReady
}

func (s *SDK) IsRewardedVideoAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized && s.fill[event.RewardedVideo]
}

func (s *SDK) OnPause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

func (s *SDK) OnResume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

func (s *SDK) ValidateIntegration() {
	s.mu.Lock()
	s.validations++
	appKey := s.appKey
	s.mu.Unlock()

	s.log.Info("Integration validated", "app_key", appKey)
}

// SetFill changes inventory for a surface. Offerwall and rewarded video
// announce the change when the SDK is initialized.
func (s *SDK) SetFill(unit event.AdUnitType, filled bool) {
	s.mu.Lock()
	changed := s.fill[unit] != filled
	s.fill[unit] = filled
	initialized := s.initialized
	s.mu.Unlock()

	if !changed || !initialized {
		return
	}

	switch unit {
	case event.OfferWall:
		s.emitOfferwall(func(l mediation.OfferwallListener) { l.OnOfferwallAvailable(filled) })
	case event.RewardedVideo:
		s.emitRewardedVideo(func(l mediation.RewardedVideoListener) { l.OnRewardedVideoAvailabilityChanged(filled) })
	}
}

// Click simulates the user tapping the currently displayed ad.
func (s *SDK) Click(unit event.AdUnitType) {
	switch unit {
	case event.Interstitial:
		s.emitInterstitial(func(l mediation.InterstitialListener) { l.OnInterstitialAdClicked() })
	case event.RewardedVideo:
		s.emitRewardedVideo(func(l mediation.RewardedVideoListener) {
			l.OnRewardedVideoAdClicked(mediation.Placement{Name: DefaultRewardedVideoPlacement})
		})
	}
}

// FailCredits simulates a failed offerwall credit query.
func (s *SDK) FailCredits(message string) {
	s.emitOfferwall(func(l mediation.OfferwallListener) {
		l.OnGetOfferwallCreditsFailed(&mediation.Error{Code: errCodeNotReady, Message: message})
	})
}

// State is a snapshot of what the bridge has configured on the SDK.
type State struct {
	Initialized   bool
	AppKey        string
	UserID        string
	DynamicUserID string
	Consent       bool
	ClientSide    bool
	PluginData    mediation.PluginData
	Paused        bool
	Validations   int
	TotalCredits  int
	HasListeners  bool
}

func (s *SDK) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Initialized:   s.initialized,
		AppKey:        s.appKey,
		UserID:        s.userID,
		DynamicUserID: s.dynamicUserID,
		Consent:       s.consent,
		ClientSide:    s.clientSide,
		PluginData:    s.pluginData,
		Paused:        s.paused,
		Validations:   s.validations,
		TotalCredits:  s.totalCredits,
		HasListeners:  s.offerwall != nil && s.interstitial != nil && s.rewardedVideo != nil,
	}
}

func (s *SDK) emitOfferwall(fn func(mediation.OfferwallListener)) {
	s.emit(func() {
		s.mu.Lock()
		l := s.offerwall
		s.mu.Unlock()
		if l != nil {
			fn(l)
		}
	})
}

func (s *SDK) emitInterstitial(fn func(mediation.InterstitialListener)) {
	s.emit(func() {
		s.mu.Lock()
		l := s.interstitial
		s.mu.Unlock()
		if l != nil {
			fn(l)
		}
	})
}

func (s *SDK) emitRewardedVideo(fn func(mediation.RewardedVideoListener)) {
	s.emit(func() {
		s.mu.Lock()
		l := s.rewardedVideo
		s.mu.Unlock()
		if l != nil {
			fn(l)
		}
	})
}

func (s *SDK) emit(fn func()) {
	latency := time.Duration(s.cfg.LatencyMillis) * time.Millisecond
	s.callbacks.Post(func() {
		if latency > 0 {
			time.Sleep(latency)
		}
		fn()
	})
}
