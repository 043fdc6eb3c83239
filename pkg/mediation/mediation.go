// Package mediation defines the contract between the bridge and an ad
// mediation SDK. The SDK is opaque: the bridge only forwards calls to it and
// receives callbacks through the listener interfaces below.
package mediation

import "fmt"

// Error is the failure descriptor an SDK attaches to failure callbacks.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// MessageOf returns the human-readable part of err, or "" for a nil error.
func MessageOf(err *Error) string {
	if err == nil {
		return ""
	}
	return err.Message
}

// Placement describes the reward attached to a rewarded-video placement.
type Placement struct {
	Name         string
	RewardName   string
	RewardAmount int
}

// PluginData identifies the host framework to the SDK for attribution.
type PluginData struct {
	Framework string
	Version   string
	HostBuild string
}

type OfferwallListener interface {
	OnOfferwallAvailable(available bool)
	OnOfferwallOpened()
	OnOfferwallShowFailed(err *Error)
	// OnOfferwallAdCredited reports whether the credit was consumed.
	OnOfferwallAdCredited(credits, totalCredits int, totalCreditsFlag bool) bool
	OnGetOfferwallCreditsFailed(err *Error)
	OnOfferwallClosed()
}

type InterstitialListener interface {
	OnInterstitialAdReady()
	OnInterstitialAdLoadFailed(err *Error)
	OnInterstitialAdOpened()
	OnInterstitialAdClosed()
	OnInterstitialAdShowSucceeded()
	OnInterstitialAdShowFailed(err *Error)
	OnInterstitialAdClicked()
}

type RewardedVideoListener interface {
	OnRewardedVideoAdClicked(placement Placement)
	OnRewardedVideoAdOpened()
	OnRewardedVideoAdClosed()
	OnRewardedVideoAvailabilityChanged(available bool)
	OnRewardedVideoAdStarted()
	OnRewardedVideoAdEnded()
	OnRewardedVideoAdRewarded(placement Placement)
	OnRewardedVideoAdShowFailed(err *Error)
}

// SDK is the surface of the mediation SDK the bridge drives. Every mutating
// call is made from the host UI loop. An empty placement selects the SDK
// default placement.
type SDK interface {
	SetOfferwallListener(l OfferwallListener)
	SetInterstitialListener(l InterstitialListener)
	SetRewardedVideoListener(l RewardedVideoListener)

	SetPluginData(data PluginData)
	SetClientSideCallbacks(enabled bool)
	SetUserID(userID string)
	SetDynamicUserID(userID string)
	SetConsent(consent bool)
	Init(appKey string)

	LoadInterstitial()
	ShowOfferwall()
	ShowInterstitial(placement string)
	ShowRewardedVideo(placement string)

	IsOfferwallAvailable() bool
	IsInterstitialReady() bool
	IsRewardedVideoAvailable() bool

	OnPause()
	OnResume()
	ValidateIntegration()
}
