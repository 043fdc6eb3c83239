package plugin

import (
	"fmt"
	"sync"

	"adsbridge/pkg/mediation"
)

// fakeSDK records every call in order. Availability is set by tests.
type fakeSDK struct {
	mu    sync.Mutex
	calls []string
	hook  func(call string)

	offerwallAvailable     bool
	interstitialReady      bool
	rewardedVideoAvailable bool

	offerwall     mediation.OfferwallListener
	interstitial  mediation.InterstitialListener
	rewardedVideo mediation.RewardedVideoListener
}

func (f *fakeSDK) record(format string, args ...any) {
	call := fmt.Sprintf(format, args...)

	f.mu.Lock()
	f.calls = append(f.calls, call)
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
}

func (f *fakeSDK) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSDK) count(call string) int {
	n := 0
	for _, c := range f.snapshot() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeSDK) setHook(hook func(string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = hook
}

func (f *fakeSDK) setAvailability(offerwall, interstitial, rewardedVideo bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offerwallAvailable = offerwall
	f.interstitialReady = interstitial
	f.rewardedVideoAvailable = rewardedVideo
}

func (f *fakeSDK) listeners() (mediation.OfferwallListener, mediation.InterstitialListener, mediation.RewardedVideoListener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offerwall, f.interstitial, f.rewardedVideo
}

func (f *fakeSDK) SetOfferwallListener(l mediation.OfferwallListener) {
	f.mu.Lock()
	f.offerwall = l
	f.mu.Unlock()
	f.record("SetOfferwallListener")
}

func (f *fakeSDK) SetInterstitialListener(l mediation.InterstitialListener) {
	f.mu.Lock()
	f.interstitial = l
	f.mu.Unlock()
	f.record("SetInterstitialListener")
}

func (f *fakeSDK) SetRewardedVideoListener(l mediation.RewardedVideoListener) {
	f.mu.Lock()
	f.rewardedVideo = l
	f.mu.Unlock()
	f.record("SetRewardedVideoListener")
}

func (f *fakeSDK) SetPluginData(data mediation.PluginData) {
	f.record("SetPluginData(%s,%s,%s)", data.Framework, data.Version, data.HostBuild)
}

func (f *fakeSDK) SetClientSideCallbacks(enabled bool) {
	f.record("SetClientSideCallbacks(%t)", enabled)
}

func (f *fakeSDK) SetUserID(userID string)        { f.record("SetUserID(%s)", userID) }
func (f *fakeSDK) SetDynamicUserID(userID string) { f.record("SetDynamicUserID(%s)", userID) }
func (f *fakeSDK) SetConsent(consent bool)        { f.record("SetConsent(%t)", consent) }
func (f *fakeSDK) Init(appKey string)             { f.record("Init(%s)", appKey) }
func (f *fakeSDK) LoadInterstitial()              { f.record("LoadInterstitial") }
func (f *fakeSDK) ShowOfferwall()                 { f.record("ShowOfferwall") }

func (f *fakeSDK) ShowInterstitial(placement string) {
	f.record("ShowInterstitial(%s)", placement)
}

func (f *fakeSDK) ShowRewardedVideo(placement string) {
	f.record("ShowRewardedVideo(%s)", placement)
}

func (f *fakeSDK) IsOfferwallAvailable() bool {
	f.record("IsOfferwallAvailable")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offerwallAvailable
}

func (f *fakeSDK) IsInterstitialReady() bool {
	f.record("IsInterstitialReady")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interstitialReady
}

func (f *fakeSDK) IsRewardedVideoAvailable() bool {
	f.record("IsRewardedVideoAvailable")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rewardedVideoAvailable
}

func (f *fakeSDK) OnPause()             { f.record("OnPause") }
func (f *fakeSDK) OnResume()            { f.record("OnResume") }
func (f *fakeSDK) ValidateIntegration() { f.record("ValidateIntegration") }
