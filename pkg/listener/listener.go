// Package listener adapts mediation SDK callbacks into event.Native values.
// Adapters are stateless; everything they receive is handed to a Sink.
package listener

import (
	"adsbridge/pkg/event"
	"adsbridge/pkg/mediation"
)

// Sink receives raw callbacks. Implementations normalize and dispatch them.
type Sink interface {
	Accept(native event.Native)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(native event.Native)

func (f SinkFunc) Accept(native event.Native) {
	f(native)
}

// Set bundles the three adapters sharing one sink.
type Set struct {
	Offerwall     *Offerwall
	Interstitial  *Interstitial
	RewardedVideo *RewardedVideo
}

func NewSet(sink Sink) Set {
	return Set{
		Offerwall:     &Offerwall{sink: sink},
		Interstitial:  &Interstitial{sink: sink},
		RewardedVideo: &RewardedVideo{sink: sink},
	}
}

// Install registers the adapters as the SDK's callback listeners.
func (s Set) Install(sdk mediation.SDK) {
	sdk.SetOfferwallListener(s.Offerwall)
	sdk.SetInterstitialListener(s.Interstitial)
	sdk.SetRewardedVideoListener(s.RewardedVideo)
}

type Offerwall struct {
	sink Sink
}

var _ mediation.OfferwallListener = (*Offerwall)(nil)

func NewOfferwall(sink Sink) *Offerwall {
	return &Offerwall{sink: sink}
}

func (o *Offerwall) OnOfferwallAvailable(available bool) {
	o.sink.Accept(event.Native{Kind: event.OfferwallAvailabilityChanged, Available: available})
}

func (o *Offerwall) OnOfferwallOpened() {
	o.sink.Accept(event.Native{Kind: event.OfferwallOpened})
}

func (o *Offerwall) OnOfferwallShowFailed(err *mediation.Error) {
	o.sink.Accept(event.Native{Kind: event.OfferwallShowFailed, Message: mediation.MessageOf(err)})
}

// OnOfferwallAdCredited always consumes the credit.
func (o *Offerwall) OnOfferwallAdCredited(credits, totalCredits int, totalCreditsFlag bool) bool {
	o.sink.Accept(event.Native{
		Kind: event.OfferwallCredited,
		Credit: &event.Credit{
			Credits:          credits,
			TotalCredits:     totalCredits,
			TotalCreditsFlag: totalCreditsFlag,
		},
	})
	return true
}

func (o *Offerwall) OnGetOfferwallCreditsFailed(err *mediation.Error) {
	o.sink.Accept(event.Native{Kind: event.OfferwallCreditsFailed, Message: mediation.MessageOf(err)})
}

func (o *Offerwall) OnOfferwallClosed() {
	o.sink.Accept(event.Native{Kind: event.OfferwallClosed})
}

type Interstitial struct {
	sink Sink
}

var _ mediation.InterstitialListener = (*Interstitial)(nil)

func NewInterstitial(sink Sink) *Interstitial {
	return &Interstitial{sink: sink}
}

func (i *Interstitial) OnInterstitialAdReady() {
	i.sink.Accept(event.Native{Kind: event.InterstitialReady})
}

func (i *Interstitial) OnInterstitialAdLoadFailed(err *mediation.Error) {
	i.sink.Accept(event.Native{Kind: event.InterstitialLoadFailed, Message: mediation.MessageOf(err)})
}

func (i *Interstitial) OnInterstitialAdOpened() {
	i.sink.Accept(event.Native{Kind: event.InterstitialOpened})
}

func (i *Interstitial) OnInterstitialAdClosed() {
	i.sink.Accept(event.Native{Kind: event.InterstitialClosed})
}

func (i *Interstitial) OnInterstitialAdShowSucceeded() {
	i.sink.Accept(event.Native{Kind: event.InterstitialShowSucceeded})
}

func (i *Interstitial) OnInterstitialAdShowFailed(err *mediation.Error) {
	i.sink.Accept(event.Native{Kind: event.InterstitialShowFailed, Message: mediation.MessageOf(err)})
}

func (i *Interstitial) OnInterstitialAdClicked() {
	i.sink.Accept(event.Native{Kind: event.InterstitialClicked})
}

type RewardedVideo struct {
	sink Sink
}

var _ mediation.RewardedVideoListener = (*RewardedVideo)(nil)

func NewRewardedVideo(sink Sink) *RewardedVideo {
	return &RewardedVideo{sink: sink}
}

func (r *RewardedVideo) OnRewardedVideoAdClicked(placement mediation.Placement) {
	r.sink.Accept(event.Native{Kind: event.RewardedVideoClicked, Reward: reward(placement)})
}

func (r *RewardedVideo) OnRewardedVideoAdOpened() {
	r.sink.Accept(event.Native{Kind: event.RewardedVideoOpened})
}

func (r *RewardedVideo) OnRewardedVideoAdClosed() {
	r.sink.Accept(event.Native{Kind: event.RewardedVideoClosed})
}

func (r *RewardedVideo) OnRewardedVideoAvailabilityChanged(available bool) {
	r.sink.Accept(event.Native{Kind: event.RewardedVideoAvailabilityChanged, Available: available})
}

func (r *RewardedVideo) OnRewardedVideoAdStarted() {
	r.sink.Accept(event.Native{Kind: event.RewardedVideoStarted})
}

func (r *RewardedVideo) OnRewardedVideoAdEnded() {
	r.sink.Accept(event.Native{Kind: event.RewardedVideoEnded})
}

func (r *RewardedVideo) OnRewardedVideoAdRewarded(placement mediation.Placement) {
	r.sink.Accept(event.Native{Kind: event.RewardedVideoRewarded, Reward: reward(placement)})
}

func (r *RewardedVideo) OnRewardedVideoAdShowFailed(err *mediation.Error) {
	r.sink.Accept(event.Native{Kind: event.RewardedVideoShowFailed, Message: mediation.MessageOf(err)})
}

func reward(placement mediation.Placement) *event.Reward {
	return &event.Reward{
		PlacementName: placement.Name,
		RewardName:    placement.RewardName,
		RewardAmount:  placement.RewardAmount,
	}
}
