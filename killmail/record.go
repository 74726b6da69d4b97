package killmail

import (
	"fmt"
	"iter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Entity is an EVE identity (character, corporation, alliance, type) known by
// both its ID and its name.
type Entity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Record is the canonical, source-independent killmail. It is immutable: all
// fields are set once by a Builder and only exposed through getters.
type Record struct {
	killID    int64
	shipID    int64
	ship      string
	pilotID   int64
	pilot     string
	corpID    int64
	corp      string
	alliance  Optional[Entity]
	url       string
	value     Optional[decimal.Decimal]
	timestamp time.Time
	verified  bool
}

func (r Record) KillID() int64 { return r.killID }
func (r Record) ShipID() int64 { return r.shipID }
func (r Record) Ship() string { return r.ship }
func (r Record) PilotID() int64 { return r.pilotID }
func (r Record) Pilot() string { return r.pilot }
func (r Record) CorpID() int64 { return r.corpID }
func (r Record) Corp() string { return r.corp }
func (r Record) URL() string { return r.url }
func (r Record) Timestamp() time.Time { return r.timestamp }
func (r Record) Verified() bool { return r.verified }

// Alliance is absent when the corporation was not in an alliance at the time
// of the loss.
func (r Record) Alliance() Optional[Entity] { return r.alliance }

// Value is the estimated loss in millions of ISK, absent when the source does
// not report one.
func (r Record) Value() Optional[decimal.Decimal] { return r.value }

func (r Record) String() string {
	return fmt.Sprintf("%d: %s lost a %s. Verified: %t.", r.killID, r.pilot, r.ship, r.verified)
}

// Field is a named record value as consumed by the request storage layer.
type Field struct {
	Name  string
	Value any
}

// All yields the record's fields under the request entity's column names, in
// this order: id, ship_type, corporation, alliance, killmail_url, base_payout,
// kill_timestamp. Absent optional values are yielded as nil.
func (r Record) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		var alliance any
		if a, ok := r.alliance.Get(); ok {
			alliance = a.Name
		}

		var value any
		if v, ok := r.value.Get(); ok {
			value = v
		}

		fields := [...]Field{
			{"id", r.killID},
			{"ship_type", r.ship},
			{"corporation", r.corp},
			{"alliance", alliance},
			{"killmail_url", r.url},
			{"base_payout", value},
			{"kill_timestamp", r.timestamp},
		}

		for _, f := range fields {
			if !yield(f.Name, f.Value) {
				return
			}
		}
	}
}

// Fields returns the same pairs as All as a slice.
func (r Record) Fields() []Field {
	fields := make([]Field, 0, 7)
	for name, value := range r.All() {
		fields = append(fields, Field{Name: name, Value: value})
	}
	return fields
}

type recordJSON struct {
	KillID     int64                     `json:"kill_id"`
	ShipID     int64                     `json:"ship_id"`
	Ship       string                    `json:"ship"`
	PilotID    int64                     `json:"pilot_id"`
	Pilot      string                    `json:"pilot"`
	CorpID     int64                     `json:"corp_id"`
	Corp       string                    `json:"corp"`
	AllianceID Optional[int64]           `json:"alliance_id"`
	Alliance   Optional[string]          `json:"alliance"`
	URL        string                    `json:"url"`
	Value      Optional[decimal.Decimal] `json:"value"`
	Timestamp  time.Time                 `json:"timestamp"`
	Verified   bool                      `json:"verified"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		KillID:     r.killID,
		ShipID:     r.shipID,
		Ship:       r.ship,
		PilotID:    r.pilotID,
		Pilot:      r.pilot,
		CorpID:     r.corpID,
		Corp:       r.corp,
		AllianceID: None[int64](),
		Alliance:   None[string](),
		URL:        r.url,
		Value:      r.value,
		Timestamp:  r.timestamp,
		Verified:   r.verified,
	}

	if a, ok := r.alliance.Get(); ok {
		out.AllianceID = Some(a.ID)
		out.Alliance = Some(a.Name)
	}

	return json.Marshal(out)
}

// UnmarshalJSON decodes a record previously encoded with MarshalJSON. The
// decoded fields go through a Builder, so incomplete payloads are rejected.
func (r *Record) UnmarshalJSON(data []byte) error {
	var in struct {
		KillID     *int64                    `json:"kill_id"`
		ShipID     *int64                    `json:"ship_id"`
		Ship       string                    `json:"ship"`
		PilotID    *int64                    `json:"pilot_id"`
		Pilot      string                    `json:"pilot"`
		CorpID     *int64                    `json:"corp_id"`
		Corp       string                    `json:"corp"`
		AllianceID Optional[int64]           `json:"alliance_id"`
		Alliance   Optional[string]          `json:"alliance"`
		URL        string                    `json:"url"`
		Value      Optional[decimal.Decimal] `json:"value"`
		Timestamp  *time.Time                `json:"timestamp"`
		Verified   *bool                     `json:"verified"`
	}

	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	b := NewBuilder().
		Ship(in.Ship).
		Pilot(in.Pilot).
		Corp(in.Corp).
		URL(in.URL)

	if in.KillID != nil {
		b.KillID(*in.KillID)
	}
	if in.ShipID != nil {
		b.ShipID(*in.ShipID)
	}
	if in.PilotID != nil {
		b.PilotID(*in.PilotID)
	}
	if in.CorpID != nil {
		b.CorpID(*in.CorpID)
	}
	if id, ok := in.AllianceID.Get(); ok {
		name, _ := in.Alliance.Get()
		b.Alliance(id, name)
	}
	if v, ok := in.Value.Get(); ok {
		b.Value(v)
	}
	if in.Timestamp != nil {
		b.Timestamp(*in.Timestamp)
	}
	if in.Verified != nil {
		b.Verified(*in.Verified)
	}

	record, err := b.Build()
	if err != nil {
		return err
	}

	*r = record
	return nil
}
