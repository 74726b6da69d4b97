package killmail

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"killsrp/fetch"
)

// Adapter fetches one upstream's data for a URL into a Builder. Adapters
// reject URLs that do not match their own pattern.
type Adapter interface {
	Source() Source
	Fetch(ctx context.Context, rawURL string) (*Builder, error)
}

// Normalize runs adapter against rawURL and validates the result. The record
// is returned only if every mandatory field was populated.
func Normalize(ctx context.Context, adapter Adapter, rawURL string) (Record, error) {
	logger := zerolog.Ctx(ctx).With().Str("source", string(adapter.Source())).Logger()

	b, err := adapter.Fetch(ctx, rawURL)
	if err != nil {
		return Record{}, err
	}

	record, err := b.Build()
	if err != nil {
		var incomplete *IncompleteRecordError
		if errors.As(err, &incomplete) {
			logger.Error().Strs("missing", incomplete.Missing).Str("url", rawURL).Msg("adapter produced incomplete killmail")
		}
		return Record{}, err
	}

	logger.Debug().Int64("killmail-id", record.KillID()).Bool("verified", record.Verified()).Msg("normalized killmail")

	return record, nil
}

var errHostNotAllowed = errors.New("host not allowed")

// Pipeline dispatches to the adapter registered for a caller-chosen source.
type Pipeline struct {
	adapters map[Source]Adapter
	hosts    map[string]bool
}

func NewPipeline(adapters ...Adapter) *Pipeline {
	p := &Pipeline{adapters: make(map[Source]Adapter, len(adapters))}
	for _, a := range adapters {
		p.adapters[a.Source()] = a
	}
	return p
}

// RestrictHosts limits the hosts submitted URLs may point at. With no hosts
// every host is allowed.
func (p *Pipeline) RestrictHosts(hosts ...string) *Pipeline {
	p.hosts = make(map[string]bool, len(hosts))
	for _, host := range hosts {
		if host = strings.ToLower(strings.TrimSpace(host)); host != "" {
			p.hosts[host] = true
		}
	}
	return p
}

func (p *Pipeline) Normalize(ctx context.Context, source Source, rawURL string) (Record, error) {
	adapter, ok := p.adapters[source]
	if !ok {
		return Record{}, &UnknownSourceError{Source: string(source)}
	}

	if len(p.hosts) > 0 {
		u, err := normalizeURL(source, rawURL)
		if err != nil {
			return Record{}, err
		}
		if !p.hosts[strings.ToLower(u.Hostname())] {
			return Record{}, &InvalidSourceURLError{Source: source, URL: rawURL, Err: errHostNotAllowed}
		}
	}

	return Normalize(ctx, adapter, rawURL)
}

// Sources lists the registered sources.
func (p *Pipeline) Sources() []Source {
	sources := make([]Source, 0, len(p.adapters))
	for s := range p.adapters {
		sources = append(sources, s)
	}
	return sources
}

func defaultClient(client *fetch.Client) *fetch.Client {
	if client != nil {
		return client
	}
	return fetch.New("KillSRP (unconfigured)")
}

// FromZKillboard builds a record from a zKillboard URL. A nil client uses a
// default client.
func FromZKillboard(ctx context.Context, rawURL string, client *fetch.Client, ships ShipNameResolver) (Record, error) {
	return Normalize(ctx, NewZKillboard(defaultClient(client), ships), rawURL)
}

// FromCREST builds a record from a CREST killmail link. A nil client uses a
// default client.
func FromCREST(ctx context.Context, rawURL string, client *fetch.Client) (Record, error) {
	return Normalize(ctx, NewCREST(defaultClient(client)), rawURL)
}
