package killmail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/antihax/goesi"
	"github.com/antihax/goesi/esi"
	json "github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"

	"killsrp/fetch"
)

// ShipNameResolver turns a ship type ID into a name. ok is false when the name
// is unknown; whether that also comes with an error depends on the strategy.
type ShipNameResolver interface {
	ResolveShipName(ctx context.Context, typeID int64) (name string, ok bool, err error)
}

// ReferenceShipNames resolves names from a static dataset. Unknown IDs are
// reported as *NotFoundError.
type ReferenceShipNames struct {
	names map[int64]string
}

func NewReferenceShipNames(names map[int64]string) *ReferenceShipNames {
	copied := make(map[int64]string, len(names))
	for id, name := range names {
		copied[id] = name
	}
	return &ReferenceShipNames{names: copied}
}

// LoadReferenceShipNames reads an SDE style types dump, a JSON object keyed by
// type ID whose values carry localized names, and keeps the English names.
func LoadReferenceShipNames(r io.Reader) (*ReferenceShipNames, error) {
	var types map[string]struct {
		Name map[string]string `json:"name"`
	}

	if err := json.NewDecoder(r).Decode(&types); err != nil {
		return nil, fmt.Errorf("failed to decode ship types: %w", err)
	}

	names := make(map[int64]string, len(types))
	for key, t := range types {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid type ID %q: %w", key, err)
		}

		if name := t.Name["en"]; name != "" {
			names[id] = name
		}
	}

	return &ReferenceShipNames{names: names}, nil
}

func (s *ReferenceShipNames) ResolveShipName(_ context.Context, typeID int64) (string, bool, error) {
	name, ok := s.names[typeID]
	if !ok {
		return "", false, &NotFoundError{Kind: "ship type", Identifier: typeID}
	}
	return name, true, nil
}

const (
	DefaultScrapeEndpoint = "http://api.eve-marketdata.com/api/type_name.xml"
	defaultScrapeAgent    = "Unconfigured KillSRP Resolver"
)

// Regexes on XML: the endpoint only promises one <val> element.
var scrapePattern = regexp.MustCompile(`<val id="\d+">([^<]+)</val>`)

// ScrapeShipNames resolves names from an eve-marketdata style XML endpoint.
// The service is best effort: bad statuses and unmatched bodies resolve to
// absent without an error. Transport failures are still returned.
type ScrapeShipNames struct {
	client   *fetch.Client
	endpoint string
	agent    string
}

// NewScrapeShipNames returns a scraper for endpoint, identifying itself with
// agent (a character name or other contact).
func NewScrapeShipNames(client *fetch.Client, endpoint string, agent string) *ScrapeShipNames {
	if endpoint == "" {
		endpoint = DefaultScrapeEndpoint
	}
	if agent == "" {
		agent = defaultScrapeAgent
	}
	return &ScrapeShipNames{client: client, endpoint: endpoint, agent: agent}
}

func (s *ScrapeShipNames) ResolveShipName(ctx context.Context, typeID int64) (string, bool, error) {
	query := url.Values{
		"char_name": {s.agent},
		"v":         {strconv.FormatInt(typeID, 10)},
	}

	res, err := s.client.Get(ctx, s.endpoint, query)
	if err != nil {
		return "", false, err
	}

	if res.StatusCode != http.StatusOK {
		return "", false, nil
	}

	match := scrapePattern.FindSubmatch(res.Body)
	if match == nil {
		return "", false, nil
	}

	name := strings.TrimSpace(string(match[1]))
	return name, name != "", nil
}

type universeTypes interface {
	GetUniverseTypesTypeId(ctx context.Context, typeId int32, localVarOptionals *esi.GetUniverseTypesTypeIdOpts) (esi.GetUniverseTypesTypeIdOk, *http.Response, error)
}

// ESIShipNames resolves names through the ESI universe types endpoint. A 404
// from ESI is reported as *NotFoundError, an unreachable ESI as
// *fetch.TransportError and any other failed answer as *UpstreamFormatError.
type ESIShipNames struct {
	types universeTypes
}

func NewESIShipNames(client *goesi.APIClient) *ESIShipNames {
	return &ESIShipNames{types: client.ESI.UniverseApi}
}

func (s *ESIShipNames) ResolveShipName(ctx context.Context, typeID int64) (string, bool, error) {
	if typeID <= 0 || typeID > math.MaxInt32 {
		return "", false, &NotFoundError{Kind: "ship type", Identifier: typeID}
	}

	t, res, err := s.types.GetUniverseTypesTypeId(ctx, int32(typeID), nil)
	if res != nil && res.StatusCode == http.StatusNotFound {
		return "", false, &NotFoundError{Kind: "ship type", Identifier: typeID}
	}

	if err != nil {
		target := fmt.Sprintf("esi universe type %d", typeID)

		var urlErr *url.Error
		if res == nil || errors.As(err, &urlErr) {
			return "", false, &fetch.TransportError{URL: target, Err: err}
		}

		return "", false, &UpstreamFormatError{URL: target, StatusCode: res.StatusCode, Err: err}
	}

	if t.Name == "" {
		return "", false, &NotFoundError{Kind: "ship type", Identifier: typeID}
	}

	return t.Name, true, nil
}

// CachedShipNames memoizes resolved names in an LRU cache. Misses and errors
// are not cached, so best-effort sources get another chance next time.
type CachedShipNames struct {
	next  ShipNameResolver
	cache *lru.Cache[int64, string]
}

func NewCachedShipNames(next ShipNameResolver, size int) (*CachedShipNames, error) {
	cache, err := lru.New[int64, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create ship name cache: %w", err)
	}
	return &CachedShipNames{next: next, cache: cache}, nil
}

func (s *CachedShipNames) ResolveShipName(ctx context.Context, typeID int64) (string, bool, error) {
	if name, ok := s.cache.Get(typeID); ok {
		return name, true, nil
	}

	name, ok, err := s.next.ResolveShipName(ctx, typeID)
	if err != nil || !ok {
		return name, ok, err
	}

	s.cache.Add(typeID, name)
	return name, true, nil
}
