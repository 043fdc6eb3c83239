// Package event defines the normalized ad event record delivered to scripts
// and the conversion from raw mediation callbacks into it.
package event

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Name is the event name every delivered record carries.
const Name = "adsRequest"

// Record keys.
const (
	KeyName     = "name"
	KeyProvider = "provider"
	KeyPhase    = "phase"
	KeyType     = "type"
	KeyIsError  = "isError"
	KeyResponse = "response"
)

// ResponseNoFill is the response attached when a surface has no inventory.
const ResponseNoFill = "noFill"

// Phase is the lifecycle stage of an ad request.
type Phase string

const (
	PhaseInit          Phase = "init"
	PhaseLoaded        Phase = "loaded"
	PhaseFailed        Phase = "failed"
	PhaseDisplayed     Phase = "displayed"
	PhaseClicked       Phase = "clicked"
	PhaseClosed        Phase = "closed"
	PhaseRewarded      Phase = "rewarded"
	PhasePlaybackBegan Phase = "playbackBegan"
	PhasePlaybackEnded Phase = "playbackEnded"
)

// Phases lists every phase in declaration order.
func Phases() []Phase {
	return []Phase{
		PhaseInit, PhaseLoaded, PhaseFailed, PhaseDisplayed, PhaseClicked,
		PhaseClosed, PhaseRewarded, PhasePlaybackBegan, PhasePlaybackEnded,
	}
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	for _, known := range Phases() {
		if p == known {
			return true
		}
	}
	return false
}

// AdUnitType identifies one ad surface.
type AdUnitType string

const (
	OfferWall     AdUnitType = "offerWall"
	Interstitial  AdUnitType = "interstitial"
	RewardedVideo AdUnitType = "rewardedVideo"
)

// AdUnitTypes lists the supported surfaces.
func AdUnitTypes() []AdUnitType {
	return []AdUnitType{OfferWall, Interstitial, RewardedVideo}
}

// Valid reports whether u is a supported surface.
func (u AdUnitType) Valid() bool {
	_, ok := ParseAdUnitType(string(u))
	return ok
}

// ParseAdUnitType matches input against the supported surfaces ignoring case.
func ParseAdUnitType(input string) (AdUnitType, bool) {
	for _, unit := range AdUnitTypes() {
		if strings.EqualFold(input, string(unit)) {
			return unit, true
		}
	}
	return "", false
}

// Field is one key/value pair of an event record. Values are string or bool.
type Field struct {
	Key   string
	Value any
}

// Event is an immutable, ordered key/value record.
type Event struct {
	fields []Field
}

// New builds a normalized event. The type key is omitted when unit is empty.
// isError is appended as false unless one of the extra fields sets it.
func New(phase Phase, unit AdUnitType, extra ...Field) Event {
	fields := make([]Field, 0, len(extra)+3)
	fields = append(fields, Field{Key: KeyPhase, Value: string(phase)})
	if unit != "" {
		fields = append(fields, Field{Key: KeyType, Value: string(unit)})
	}

	hasError := false
	for _, f := range extra {
		if f.Key == KeyIsError {
			hasError = true
		}
		fields = append(fields, f)
	}
	if !hasError {
		fields = append(fields, Field{Key: KeyIsError, Value: false})
	}

	return Event{fields: fields}
}

// Failure builds a failed event carrying isError=true and a response.
func Failure(unit AdUnitType, response string) Event {
	return New(PhaseFailed, unit,
		Field{Key: KeyIsError, Value: true},
		Field{Key: KeyResponse, Value: response},
	)
}

// Fields returns a copy of the record fields in insertion order.
func (e Event) Fields() []Field {
	out := make([]Field, len(e.fields))
	copy(out, e.fields)
	return out
}

// Get returns the value stored under key.
func (e Event) Get(key string) (any, bool) {
	for _, f := range e.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func (e Event) Phase() Phase {
	value, _ := e.Get(KeyPhase)
	text, _ := value.(string)
	return Phase(text)
}

func (e Event) Type() AdUnitType {
	value, _ := e.Get(KeyType)
	text, _ := value.(string)
	return AdUnitType(text)
}

func (e Event) IsError() bool {
	value, _ := e.Get(KeyIsError)
	flag, _ := value.(bool)
	return flag
}

// Response returns the response field when present.
func (e Event) Response() (string, bool) {
	value, ok := e.Get(KeyResponse)
	if !ok {
		return "", false
	}
	text, ok := value.(string)
	return text, ok
}

// IsZero reports whether the event was never built.
func (e Event) IsZero() bool {
	return len(e.fields) == 0
}

// MarshalJSON encodes the record as a JSON object in field order.
func (e Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range e.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
