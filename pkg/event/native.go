package event

import (
	"encoding/json"
	"fmt"
)

// Kind enumerates every (surface, callback) pair the mediation SDK reports.
type Kind int

const (
	OfferwallAvailabilityChanged Kind = iota + 1
	OfferwallOpened
	OfferwallShowFailed
	OfferwallCredited
	OfferwallCreditsFailed
	OfferwallClosed

	InterstitialReady
	InterstitialLoadFailed
	InterstitialOpened
	InterstitialClosed
	InterstitialShowSucceeded
	InterstitialShowFailed
	InterstitialClicked

	RewardedVideoClicked
	RewardedVideoOpened
	RewardedVideoClosed
	RewardedVideoAvailabilityChanged
	RewardedVideoStarted
	RewardedVideoEnded
	RewardedVideoRewarded
	RewardedVideoShowFailed
)

var kindNames = map[Kind]string{
	OfferwallAvailabilityChanged:     "offerwall_availability_changed",
	OfferwallOpened:                  "offerwall_opened",
	OfferwallShowFailed:              "offerwall_show_failed",
	OfferwallCredited:                "offerwall_credited",
	OfferwallCreditsFailed:           "offerwall_credits_failed",
	OfferwallClosed:                  "offerwall_closed",
	InterstitialReady:                "interstitial_ready",
	InterstitialLoadFailed:           "interstitial_load_failed",
	InterstitialOpened:               "interstitial_opened",
	InterstitialClosed:               "interstitial_closed",
	InterstitialShowSucceeded:        "interstitial_show_succeeded",
	InterstitialShowFailed:           "interstitial_show_failed",
	InterstitialClicked:              "interstitial_clicked",
	RewardedVideoClicked:             "rewarded_video_clicked",
	RewardedVideoOpened:              "rewarded_video_opened",
	RewardedVideoClosed:              "rewarded_video_closed",
	RewardedVideoAvailabilityChanged: "rewarded_video_availability_changed",
	RewardedVideoStarted:             "rewarded_video_started",
	RewardedVideoEnded:               "rewarded_video_ended",
	RewardedVideoRewarded:            "rewarded_video_rewarded",
	RewardedVideoShowFailed:          "rewarded_video_show_failed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Unit returns the surface a callback kind belongs to.
func (k Kind) Unit() AdUnitType {
	switch {
	case k >= OfferwallAvailabilityChanged && k <= OfferwallClosed:
		return OfferWall
	case k >= InterstitialReady && k <= InterstitialClicked:
		return Interstitial
	case k >= RewardedVideoClicked && k <= RewardedVideoShowFailed:
		return RewardedVideo
	default:
		return ""
	}
}

// Credit is the offerwall credit payload.
type Credit struct {
	Credits          int  `json:"credits"`
	TotalCredits     int  `json:"totalCredits"`
	TotalCreditsFlag bool `json:"totalCreditsFlag"`
}

// Reward is the rewarded-video placement payload.
type Reward struct {
	PlacementName string `json:"placementName"`
	RewardName    string `json:"rewardName"`
	RewardAmount  int    `json:"rewardAmount"`
}

// Native is one raw SDK callback. Only the fields relevant to Kind are read.
type Native struct {
	Kind      Kind
	Available bool
	Message   string
	Credit    *Credit
	Reward    *Reward
}

// Normalize converts a raw callback into a delivered event. It reports false
// for callbacks that are intentionally not forwarded:
//   - every "opened" signal, which arrives after the host has been suspended;
//     show emits "displayed" instead;
//   - interstitial show-succeeded, which carries nothing show did not already say;
//   - rewarded-video clicked;
//   - rewarded-video show-failed, which not every platform reports.
func Normalize(n Native) (Event, bool) {
	unit := n.Kind.Unit()

	switch n.Kind {
	case OfferwallAvailabilityChanged, RewardedVideoAvailabilityChanged:
		if n.Available {
			return New(PhaseLoaded, unit, Field{Key: KeyIsError, Value: false}), true
		}
		return Failure(unit, ResponseNoFill), true

	case OfferwallShowFailed, OfferwallCreditsFailed, InterstitialLoadFailed, InterstitialShowFailed:
		return Failure(unit, n.Message), true

	case OfferwallCredited:
		credit := Credit{}
		if n.Credit != nil {
			credit = *n.Credit
		}
		return New(PhaseRewarded, unit, Field{Key: KeyResponse, Value: serialize(credit)}), true

	case RewardedVideoRewarded:
		reward := Reward{}
		if n.Reward != nil {
			reward = *n.Reward
		}
		return New(PhaseRewarded, unit, Field{Key: KeyResponse, Value: serialize(reward)}), true

	case OfferwallClosed, InterstitialClosed, RewardedVideoClosed:
		return New(PhaseClosed, unit), true

	case InterstitialReady:
		return New(PhaseLoaded, unit), true

	case InterstitialClicked:
		return New(PhaseClicked, unit), true

	case RewardedVideoStarted:
		return New(PhasePlaybackBegan, unit), true

	case RewardedVideoEnded:
		return New(PhasePlaybackEnded, unit), true

	case OfferwallOpened, InterstitialOpened, InterstitialShowSucceeded,
		RewardedVideoClicked, RewardedVideoOpened, RewardedVideoShowFailed:
		return Event{}, false

	default:
		return Event{}, false
	}
}

// serialize flattens a payload into a JSON string. Encoding these plain
// structs cannot fail; an empty object is returned if it ever does.
func serialize(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return "{}"
	}
	return string(data)
}
