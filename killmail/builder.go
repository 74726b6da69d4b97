package killmail

import (
	"time"

	"github.com/shopspring/decimal"
)

// Builder collects record fields from an adapter. Every mandatory field must be
// set before Build succeeds; alliance and value stay absent unless set.
type Builder struct {
	killID    *int64
	shipID    *int64
	ship      string
	pilotID   *int64
	pilot     string
	corpID    *int64
	corp      string
	alliance  Optional[Entity]
	url       string
	value     Optional[decimal.Decimal]
	timestamp time.Time
	verified  *bool
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) KillID(id int64) *Builder {
	b.killID = &id
	return b
}

func (b *Builder) ShipID(id int64) *Builder {
	b.shipID = &id
	return b
}

func (b *Builder) Ship(name string) *Builder {
	b.ship = name
	return b
}

func (b *Builder) PilotID(id int64) *Builder {
	b.pilotID = &id
	return b
}

func (b *Builder) Pilot(name string) *Builder {
	b.pilot = name
	return b
}

func (b *Builder) CorpID(id int64) *Builder {
	b.corpID = &id
	return b
}

func (b *Builder) Corp(name string) *Builder {
	b.corp = name
	return b
}

// Alliance sets the victim's alliance. An alliance without a name is left
// absent.
func (b *Builder) Alliance(id int64, name string) *Builder {
	if name == "" {
		b.alliance = None[Entity]()
		return b
	}
	b.alliance = Some(Entity{ID: id, Name: name})
	return b
}

func (b *Builder) URL(url string) *Builder {
	b.url = url
	return b
}

func (b *Builder) Value(millions decimal.Decimal) *Builder {
	b.value = Some(millions)
	return b
}

func (b *Builder) Timestamp(t time.Time) *Builder {
	b.timestamp = t.UTC()
	return b
}

func (b *Builder) Verified(verified bool) *Builder {
	b.verified = &verified
	return b
}

// HasShip reports whether a ship name has been set.
func (b *Builder) HasShip() bool {
	return b.ship != ""
}

// ShipTypeID returns the ship type ID, if one has been set.
func (b *Builder) ShipTypeID() (int64, bool) {
	if b.shipID == nil {
		return 0, false
	}
	return *b.shipID, true
}

// Build returns the finished record, or an *IncompleteRecordError naming every
// mandatory field that is still unset. Empty names count as unset.
func (b *Builder) Build() (Record, error) {
	var missing []string

	check := func(name string, ok bool) {
		if !ok {
			missing = append(missing, name)
		}
	}

	check("kill_id", b.killID != nil)
	check("ship_id", b.shipID != nil)
	check("ship", b.ship != "")
	check("pilot_id", b.pilotID != nil)
	check("pilot", b.pilot != "")
	check("corp_id", b.corpID != nil)
	check("corp", b.corp != "")
	check("url", b.url != "")
	check("timestamp", !b.timestamp.IsZero())
	check("verified", b.verified != nil)

	if len(missing) > 0 {
		return Record{}, &IncompleteRecordError{Missing: missing}
	}

	if *b.killID < 0 {
		return Record{}, &InvalidFieldError{Field: "kill_id", Value: *b.killID}
	}

	return Record{
		killID:    *b.killID,
		shipID:    *b.shipID,
		ship:      b.ship,
		pilotID:   *b.pilotID,
		pilot:     b.pilot,
		corpID:    *b.corpID,
		corp:      b.corp,
		alliance:  b.alliance,
		url:       b.url,
		value:     b.value,
		timestamp: b.timestamp,
		verified:  *b.verified,
	}, nil
}
