package killmail

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"killsrp/fetch"
)

const crestPath = "/killmails/30290604/787fb3714062f1700560d4a83ce32c67640b1797/"

const crestFixture = `{
	"solarSystem": {"id": 30002187, "name": "Amarr"},
	"killID": 30290604,
	"killTime": "2015.03.10 12:00:00",
	"attackers": [],
	"attackerCount": 1,
	"victim": {
		"alliance": {"id": 498125261, "name": "Test Alliance Please Ignore"},
		"character": {"id": 93898784, "name": "Paxswill"},
		"corporation": {"id": 1018389948, "name": "Dreddit"},
		"shipType": {"id": 17740, "name": "Vindicator"},
		"damageTaken": 12345
	}
}`

func TestCRESTFetch(t *testing.T) {
	var requestedPath string

	srv, client := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Write([]byte(crestFixture))
	})

	url := srv.URL + crestPath

	record, err := FromCREST(context.Background(), url, client)
	require.NoError(t, err)

	assert.Equal(t, crestPath, requestedPath)

	assert.Equal(t, int64(30290604), record.KillID())
	assert.Equal(t, int64(17740), record.ShipID())
	assert.Equal(t, "Vindicator", record.Ship())
	assert.Equal(t, int64(93898784), record.PilotID())
	assert.Equal(t, "Paxswill", record.Pilot())
	assert.Equal(t, int64(1018389948), record.CorpID())
	assert.Equal(t, "Dreddit", record.Corp())
	assert.Equal(t, url, record.URL())
	assert.True(t, record.Verified())
	assert.False(t, record.Value().IsPresent())
	assert.Equal(t, time.Date(2015, 3, 10, 12, 0, 0, 0, time.UTC), record.Timestamp())

	alliance, ok := record.Alliance().Get()
	require.True(t, ok)
	assert.Equal(t, int64(498125261), alliance.ID)
}

func TestCRESTWithoutAlliance(t *testing.T) {
	body := strings.Replace(crestFixture, `"alliance": {"id": 498125261, "name": "Test Alliance Please Ignore"},`, "", 1)
	srv, client := newUpstream(t, serveBody(http.StatusOK, "application/json", body))

	record, err := FromCREST(context.Background(), srv.URL+crestPath, client)
	require.NoError(t, err)

	assert.False(t, record.Alliance().IsPresent())
	assert.True(t, record.Verified())
}

func TestCRESTUnnamedAlliance(t *testing.T) {
	body := strings.Replace(crestFixture, `"name": "Test Alliance Please Ignore"`, `"name": ""`, 1)
	srv, client := newUpstream(t, serveBody(http.StatusOK, "application/json", body))

	record, err := FromCREST(context.Background(), srv.URL+crestPath, client)
	require.NoError(t, err)

	assert.False(t, record.Alliance().IsPresent())
}

func TestCRESTDefaultsSchemeToHTTPS(t *testing.T) {
	srv, client := newTLSUpstream(t, serveBody(http.StatusOK, "application/json", crestFixture))

	hostOnly := strings.TrimPrefix(srv.URL, "https://") + crestPath

	record, err := FromCREST(context.Background(), hostOnly, client)
	require.NoError(t, err)

	assert.Equal(t, "https://"+hostOnly, record.URL())
}

func TestCRESTInvalidURL(t *testing.T) {
	urls := []string{
		"https://public-crest.eveonline.com/killmails/30290604/",
		"https://public-crest.eveonline.com/killmails/abc/787fb3714062f1700560d4a83ce32c67640b1797/",
		"https://zkillboard.com/detail/30290604/",
	}

	adapter := NewCREST(fetch.New("test"))

	for _, url := range urls {
		t.Run(url, func(t *testing.T) {
			_, err := Normalize(context.Background(), adapter, url)

			var invalid *InvalidSourceURLError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, SourceCREST, invalid.Source)
		})
	}
}

func TestCRESTUpstreamFormatErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "not json", status: http.StatusOK, body: "Service Unavailable"},
		{name: "forbidden", status: http.StatusForbidden, body: `{"message": "invalid hash"}`},
		{name: "dashed kill time", status: http.StatusOK, body: strings.Replace(crestFixture, "2015.03.10", "2015-03-10", 1)},
		{name: "missing victim", status: http.StatusOK, body: `{"killTime": "2015.03.10 12:00:00"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, client := newUpstream(t, serveBody(tt.status, "application/json", tt.body))

			_, err := FromCREST(context.Background(), srv.URL+crestPath, client)

			var upstream *UpstreamFormatError
			require.ErrorAs(t, err, &upstream)
			assert.Equal(t, tt.status, upstream.StatusCode)
		})
	}
}

func TestCRESTIncompleteVictim(t *testing.T) {
	body := strings.Replace(crestFixture, `"shipType": {"id": 17740, "name": "Vindicator"},`, "", 1)
	srv, client := newUpstream(t, serveBody(http.StatusOK, "application/json", body))

	_, err := FromCREST(context.Background(), srv.URL+crestPath, client)

	var incomplete *IncompleteRecordError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"ship_id", "ship"}, incomplete.Missing)
}
