package killmail

import (
	"context"
	"errors"
	"regexp"

	"github.com/rs/zerolog"

	"killsrp/fetch"
)

const crestTimeLayout = "2006.01.02 15:04:05"

var crestPattern = regexp.MustCompile(`/killmails/(\d+)/[0-9a-f]+/`)

type crestKill struct {
	KillTime *string `json:"killTime"`
	Victim   *struct {
		Character   *ref `json:"character"`
		Corporation *ref `json:"corporation"`
		Alliance    *ref `json:"alliance"`
		ShipType    *ref `json:"shipType"`
	} `json:"victim"`
}

// CREST reads killmails from CREST killmail links. The link carries the
// killmail hash, so whatever it returns is authoritative and every record is
// verified. CREST reports names inline and has no loss value.
type CREST struct {
	client *fetch.Client
}

func NewCREST(client *fetch.Client) *CREST {
	return &CREST{client: client}
}

func (c *CREST) Source() Source {
	return SourceCREST
}

func (c *CREST) Fetch(ctx context.Context, rawURL string) (*Builder, error) {
	killID, err := matchKillID(SourceCREST, crestPattern, rawURL)
	if err != nil {
		return nil, err
	}

	u, err := normalizeURL(SourceCREST, rawURL)
	if err != nil {
		return nil, err
	}

	target := u.String()

	zerolog.Ctx(ctx).Debug().Int64("killmail-id", killID).Str("url", target).Msg("fetching crest killmail")

	res, err := c.client.Get(ctx, target, nil)
	if err != nil {
		return nil, err
	}

	var kill crestKill
	if err := decodeBody(target, res, &kill); err != nil {
		return nil, err
	}

	if kill.Victim == nil {
		return nil, &UpstreamFormatError{URL: target, StatusCode: res.StatusCode, Err: errors.New("missing victim")}
	}

	timestamp, err := parseKillTime(target, res, crestTimeLayout, kill.KillTime)
	if err != nil {
		return nil, err
	}

	b := NewBuilder().
		KillID(killID).
		URL(target).
		Timestamp(timestamp).
		Verified(true)

	victim := kill.Victim

	if r := victim.Character; r != nil {
		b.Pilot(r.Name)
		if r.ID.set {
			b.PilotID(r.ID.value)
		}
	}

	if r := victim.Corporation; r != nil {
		b.Corp(r.Name)
		if r.ID.set {
			b.CorpID(r.ID.value)
		}
	}

	if r := victim.Alliance; r != nil && r.ID.set && r.ID.value != 0 {
		b.Alliance(r.ID.value, r.Name)
	}

	if r := victim.ShipType; r != nil {
		b.Ship(r.Name)
		if r.ID.set {
			b.ShipID(r.ID.value)
		}
	}

	return b, nil
}
