package event

import (
	"encoding/json"
	"testing"
)

func TestNormalizeConversionTable(t *testing.T) {
	tests := []struct {
		name       string
		native     Native
		suppressed bool
		phase      Phase
		unit       AdUnitType
		isError    bool
		response   string
	}{
		{name: "offerwall available", native: Native{Kind: OfferwallAvailabilityChanged, Available: true}, phase: PhaseLoaded, unit: OfferWall},
		{name: "offerwall unavailable", native: Native{Kind: OfferwallAvailabilityChanged}, phase: PhaseFailed, unit: OfferWall, isError: true, response: ResponseNoFill},
		{name: "offerwall opened", native: Native{Kind: OfferwallOpened}, suppressed: true},
		{name: "offerwall show failed", native: Native{Kind: OfferwallShowFailed, Message: "no offers"}, phase: PhaseFailed, unit: OfferWall, isError: true, response: "no offers"},
		{name: "offerwall credits failed", native: Native{Kind: OfferwallCreditsFailed, Message: "timeout"}, phase: PhaseFailed, unit: OfferWall, isError: true, response: "timeout"},
		{name: "offerwall closed", native: Native{Kind: OfferwallClosed}, phase: PhaseClosed, unit: OfferWall},
		{name: "interstitial ready", native: Native{Kind: InterstitialReady}, phase: PhaseLoaded, unit: Interstitial},
		{name: "interstitial load failed", native: Native{Kind: InterstitialLoadFailed, Message: "No ads to show"}, phase: PhaseFailed, unit: Interstitial, isError: true, response: "No ads to show"},
		{name: "interstitial opened", native: Native{Kind: InterstitialOpened}, suppressed: true},
		{name: "interstitial closed", native: Native{Kind: InterstitialClosed}, phase: PhaseClosed, unit: Interstitial},
		{name: "interstitial show succeeded", native: Native{Kind: InterstitialShowSucceeded}, suppressed: true},
		{name: "interstitial show failed", native: Native{Kind: InterstitialShowFailed, Message: "expired"}, phase: PhaseFailed, unit: Interstitial, isError: true, response: "expired"},
		{name: "interstitial clicked", native: Native{Kind: InterstitialClicked}, phase: PhaseClicked, unit: Interstitial},
		{name: "rewarded clicked", native: Native{Kind: RewardedVideoClicked}, suppressed: true},
		{name: "rewarded opened", native: Native{Kind: RewardedVideoOpened}, suppressed: true},
		{name: "rewarded closed", native: Native{Kind: RewardedVideoClosed}, phase: PhaseClosed, unit: RewardedVideo},
		{name: "rewarded available", native: Native{Kind: RewardedVideoAvailabilityChanged, Available: true}, phase: PhaseLoaded, unit: RewardedVideo},
		{name: "rewarded unavailable", native: Native{Kind: RewardedVideoAvailabilityChanged}, phase: PhaseFailed, unit: RewardedVideo, isError: true, response: ResponseNoFill},
		{name: "rewarded started", native: Native{Kind: RewardedVideoStarted}, phase: PhasePlaybackBegan, unit: RewardedVideo},
		{name: "rewarded ended", native: Native{Kind: RewardedVideoEnded}, phase: PhasePlaybackEnded, unit: RewardedVideo},
		{name: "rewarded show failed", native: Native{Kind: RewardedVideoShowFailed, Message: "ignored"}, suppressed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, ok := Normalize(tt.native)
			if tt.suppressed {
				if ok {
					t.Fatalf("expected %s to be suppressed, got %v", tt.native.Kind, evt.Fields())
				}
				return
			}
			if !ok {
				t.Fatalf("expected %s to produce an event", tt.native.Kind)
			}

			assertInvariants(t, evt)
			if evt.Phase() != tt.phase {
				t.Fatalf("phase = %q, want %q", evt.Phase(), tt.phase)
			}
			if evt.Type() != tt.unit {
				t.Fatalf("type = %q, want %q", evt.Type(), tt.unit)
			}
			if evt.IsError() != tt.isError {
				t.Fatalf("isError = %v, want %v", evt.IsError(), tt.isError)
			}
			response, hasResponse := evt.Response()
			if tt.response == "" && hasResponse {
				t.Fatalf("unexpected response %q", response)
			}
			if tt.response != "" && response != tt.response {
				t.Fatalf("response = %q, want %q", response, tt.response)
			}
		})
	}
}

func TestNormalizeOfferwallCreditSerializesPayload(t *testing.T) {
	evt, ok := Normalize(Native{
		Kind:   OfferwallCredited,
		Credit: &Credit{Credits: 5, TotalCredits: 25, TotalCreditsFlag: true},
	})
	if !ok {
		t.Fatal("expected credited event")
	}
	assertInvariants(t, evt)
	if evt.Phase() != PhaseRewarded || evt.IsError() {
		t.Fatalf("unexpected event %v", evt.Fields())
	}

	response, _ := evt.Response()
	want := `{"credits":5,"totalCredits":25,"totalCreditsFlag":true}`
	if response != want {
		t.Fatalf("response = %s, want %s", response, want)
	}
}

func TestNormalizeRewardSerializesPlacement(t *testing.T) {
	evt, ok := Normalize(Native{
		Kind:   RewardedVideoRewarded,
		Reward: &Reward{PlacementName: "DefaultRewardedVideo", RewardName: "Coins", RewardAmount: 100},
	})
	if !ok {
		t.Fatal("expected rewarded event")
	}

	response, _ := evt.Response()
	var reward Reward
	if err := json.Unmarshal([]byte(response), &reward); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if reward.PlacementName != "DefaultRewardedVideo" || reward.RewardName != "Coins" || reward.RewardAmount != 100 {
		t.Fatalf("reward = %+v", reward)
	}
}

func TestNormalizeNilPayloadsStillSerialize(t *testing.T) {
	evt, ok := Normalize(Native{Kind: RewardedVideoRewarded})
	if !ok {
		t.Fatal("expected rewarded event")
	}
	response, _ := evt.Response()
	if response != `{"placementName":"","rewardName":"","rewardAmount":0}` {
		t.Fatalf("response = %s", response)
	}
}

func TestNormalizeUnknownKind(t *testing.T) {
	if _, ok := Normalize(Native{Kind: Kind(999)}); ok {
		t.Fatal("expected unknown kind to be dropped")
	}
}

func TestKindUnit(t *testing.T) {
	if OfferwallClosed.Unit() != OfferWall {
		t.Fatalf("OfferwallClosed unit = %q", OfferwallClosed.Unit())
	}
	if InterstitialClicked.Unit() != Interstitial {
		t.Fatalf("InterstitialClicked unit = %q", InterstitialClicked.Unit())
	}
	if RewardedVideoShowFailed.Unit() != RewardedVideo {
		t.Fatalf("RewardedVideoShowFailed unit = %q", RewardedVideoShowFailed.Unit())
	}
	if Kind(0).Unit() != "" {
		t.Fatal("zero kind must not map to a surface")
	}
}

func assertInvariants(t *testing.T, evt Event) {
	t.Helper()

	if !evt.Phase().Valid() {
		t.Fatalf("phase %q not in enum", evt.Phase())
	}
	if !evt.Type().Valid() {
		t.Fatalf("type %q not in enum", evt.Type())
	}
	value, ok := evt.Get(KeyIsError)
	if !ok {
		t.Fatal("isError missing")
	}
	if _, isBool := value.(bool); !isBool {
		t.Fatalf("isError = %T, want bool", value)
	}
}
