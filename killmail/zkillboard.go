package killmail

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"killsrp/fetch"
)

const zkbTimeLayout = "2006-01-02 15:04:05"

var zkbPattern = regexp.MustCompile(`/detail/(\d+)/?`)

type zkbVictim struct {
	CharacterID     eveID   `json:"characterID"`
	CharacterName   string  `json:"characterName"`
	CorporationID   eveID   `json:"corporationID"`
	CorporationName string  `json:"corporationName"`
	AllianceID      eveID   `json:"allianceID"`
	AllianceName    *string `json:"allianceName"`
	ShipTypeID      eveID   `json:"shipTypeID"`
}

type zkbKill struct {
	KillTime *string    `json:"killTime"`
	Victim   *zkbVictim `json:"victim"`
	Zkb      struct {
		TotalValue decimal.NullDecimal `json:"totalValue"`
	} `json:"zkb"`
}

// ZKillboard reads killmails from zKillboard style killboards. The killboard
// API does not name the lost ship, so names come from the ShipNameResolver.
type ZKillboard struct {
	client *fetch.Client
	ships  ShipNameResolver
}

// NewZKillboard returns an adapter using client for requests. ships may be nil,
// in which case every record fails validation for lack of a ship name.
func NewZKillboard(client *fetch.Client, ships ShipNameResolver) *ZKillboard {
	return &ZKillboard{client: client, ships: ships}
}

func (z *ZKillboard) Source() Source {
	return SourceZKillboard
}

func (z *ZKillboard) Fetch(ctx context.Context, rawURL string) (*Builder, error) {
	killID, err := matchKillID(SourceZKillboard, zkbPattern, rawURL)
	if err != nil {
		return nil, err
	}

	u, err := normalizeURL(SourceZKillboard, rawURL)
	if err != nil {
		return nil, err
	}

	apiURL := (&url.URL{
		Scheme: u.Scheme,
		Host:   u.Host,
		Path:   fmt.Sprintf("/api/killID/%d", killID),
	}).String()

	logger := zerolog.Ctx(ctx).With().Int64("killmail-id", killID).Str("api-url", apiURL).Logger()
	logger.Debug().Msg("fetching zkillboard killmail")

	res, err := z.client.Get(ctx, apiURL, nil)
	if err != nil {
		return nil, err
	}

	var kills []zkbKill
	if err := decodeBody(apiURL, res, &kills); err != nil {
		return nil, err
	}

	if len(kills) == 0 {
		return nil, &UpstreamFormatError{URL: apiURL, StatusCode: res.StatusCode, Err: errors.New("empty killmail list")}
	}

	kill := kills[0]
	if kill.Victim == nil {
		return nil, &UpstreamFormatError{URL: apiURL, StatusCode: res.StatusCode, Err: errors.New("missing victim")}
	}

	timestamp, err := parseKillTime(apiURL, res, zkbTimeLayout, kill.KillTime)
	if err != nil {
		return nil, err
	}

	victim := kill.Victim

	b := NewBuilder().
		KillID(killID).
		URL(u.String()).
		Pilot(victim.CharacterName).
		Corp(victim.CorporationName).
		Timestamp(timestamp).
		Verified(killID > 0)

	if victim.CharacterID.set {
		b.PilotID(victim.CharacterID.value)
	}
	if victim.CorporationID.set {
		b.CorpID(victim.CorporationID.value)
	}

	// Older killboards send allianceID 0 rather than null for unaligned corps.
	if victim.AllianceID.set && victim.AllianceID.value != 0 {
		var name string
		if victim.AllianceName != nil {
			name = *victim.AllianceName
		}
		b.Alliance(victim.AllianceID.value, name)
	}

	if kill.Zkb.TotalValue.Valid {
		// totalValue is in ISK, records hold millions of ISK
		b.Value(kill.Zkb.TotalValue.Decimal.Shift(-6))
	}

	if victim.ShipTypeID.set {
		b.ShipID(victim.ShipTypeID.value)

		if z.ships != nil {
			name, ok, err := z.ships.ResolveShipName(ctx, victim.ShipTypeID.value)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve ship name: %w", err)
			}

			if ok {
				b.Ship(name)
			} else {
				logger.Warn().Int64("ship-type-id", victim.ShipTypeID.value).Msg("ship name not resolved")
			}
		}
	}

	return b, nil
}
