package killmail

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeBuilder() *Builder {
	return NewBuilder().
		KillID(45207823).
		ShipID(587).
		Ship("Rifter").
		PilotID(93898784).
		Pilot("Paxswill").
		CorpID(1018389948).
		Corp("Dreddit").
		URL("https://zkillboard.com/detail/45207823/").
		Timestamp(time.Date(2015, 3, 10, 12, 0, 0, 0, time.UTC)).
		Verified(true)
}

func TestBuilderReportsEveryMissingField(t *testing.T) {
	_, err := NewBuilder().Alliance(1, "Alliance").Build()

	var incomplete *IncompleteRecordError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{
		"kill_id", "ship_id", "ship", "pilot_id", "pilot", "corp_id", "corp", "url", "timestamp", "verified",
	}, incomplete.Missing)
	assert.Equal(t, "incomplete_record", ErrorKind(err))
}

func TestBuilderOptionalFields(t *testing.T) {
	record, err := completeBuilder().Build()
	require.NoError(t, err)

	assert.False(t, record.Alliance().IsPresent())
	assert.False(t, record.Value().IsPresent())
}

func TestBuilderRejectsNegativeKillID(t *testing.T) {
	_, err := completeBuilder().KillID(-1).Build()

	var invalid *InvalidFieldError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "kill_id", invalid.Field)
	assert.Equal(t, int64(-1), invalid.Value)
	assert.Equal(t, "invalid_field", ErrorKind(err))
	assert.False(t, IsTransient(err))
}

func TestBuilderDropsUnnamedAlliance(t *testing.T) {
	record, err := completeBuilder().Alliance(498125261, "").Build()
	require.NoError(t, err)
	assert.False(t, record.Alliance().IsPresent())

	record, err = completeBuilder().Alliance(498125261, "Test Alliance Please Ignore").Alliance(498125261, "").Build()
	require.NoError(t, err)
	assert.False(t, record.Alliance().IsPresent())
}

func TestBuilderNormalizesTimestampToUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)

	record, err := completeBuilder().Timestamp(time.Date(2015, 3, 10, 7, 0, 0, 0, est)).Build()
	require.NoError(t, err)

	assert.Equal(t, time.UTC, record.Timestamp().Location())
	assert.Equal(t, 12, record.Timestamp().Hour())
}

func TestRecordFieldOrder(t *testing.T) {
	value := decimal.RequireFromString("12.5")

	record, err := completeBuilder().
		Alliance(498125261, "Test Alliance Please Ignore").
		Value(value).
		Build()
	require.NoError(t, err)

	assert.Equal(t, []Field{
		{Name: "id", Value: int64(45207823)},
		{Name: "ship_type", Value: "Rifter"},
		{Name: "corporation", Value: "Dreddit"},
		{Name: "alliance", Value: "Test Alliance Please Ignore"},
		{Name: "killmail_url", Value: "https://zkillboard.com/detail/45207823/"},
		{Name: "base_payout", Value: value},
		{Name: "kill_timestamp", Value: time.Date(2015, 3, 10, 12, 0, 0, 0, time.UTC)},
	}, record.Fields())
}

func TestRecordAllStopsEarly(t *testing.T) {
	record, err := completeBuilder().Build()
	require.NoError(t, err)

	var names []string
	for name, value := range record.All() {
		names = append(names, name)
		if name == "alliance" {
			assert.Nil(t, value)
			break
		}
	}

	assert.Equal(t, []string{"id", "ship_type", "corporation", "alliance"}, names)
}

func TestRecordString(t *testing.T) {
	record, err := completeBuilder().Build()
	require.NoError(t, err)

	assert.Equal(t, "45207823: Paxswill lost a Rifter. Verified: true.", record.String())
}

func TestRecordJSON(t *testing.T) {
	record, err := completeBuilder().
		Alliance(498125261, "Test Alliance Please Ignore").
		Value(decimal.RequireFromString("1.000000")).
		Build()
	require.NoError(t, err)

	encoded, err := json.Marshal(record)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"kill_id": 45207823,
		"ship_id": 587,
		"ship": "Rifter",
		"pilot_id": 93898784,
		"pilot": "Paxswill",
		"corp_id": 1018389948,
		"corp": "Dreddit",
		"alliance_id": 498125261,
		"alliance": "Test Alliance Please Ignore",
		"url": "https://zkillboard.com/detail/45207823/",
		"value": "1",
		"timestamp": "2015-03-10T12:00:00Z",
		"verified": true
	}`, string(encoded))

	var decoded Record
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	reencoded, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(encoded), string(reencoded))
	assert.Equal(t, record.Alliance(), decoded.Alliance())
}

func TestRecordJSONRejectsIncomplete(t *testing.T) {
	var record Record
	err := json.Unmarshal([]byte(`{"kill_id": 1, "ship": "Rifter", "alliance": null, "value": null}`), &record)

	var incomplete *IncompleteRecordError
	require.ErrorAs(t, err, &incomplete)
	assert.Contains(t, incomplete.Missing, "verified")
}

func TestPipelineDispatch(t *testing.T) {
	pipeline := NewPipeline(NewCREST(nil), NewZKillboard(nil, nil))

	assert.ElementsMatch(t, []Source{SourceCREST, SourceZKillboard}, pipeline.Sources())

	_, err := pipeline.Normalize(context.Background(), Source("eve-kill"), "https://eve-kill.com/kill/1")

	var unknown *UnknownSourceError
	require.ErrorAs(t, err, &unknown)

	// adapters reject URLs meant for the other source before any request
	_, err = pipeline.Normalize(context.Background(), SourceCREST, "https://zkillboard.com/detail/1/")
	var invalid *InvalidSourceURLError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, SourceCREST, invalid.Source)
}

func TestPipelineRestrictHosts(t *testing.T) {
	srv, client := newUpstream(t, serveBody(http.StatusOK, "application/json", zkbFixture))

	allowed, err := url.Parse(srv.URL)
	require.NoError(t, err)

	pipeline := NewPipeline(NewZKillboard(client, rifter())).RestrictHosts(" " + strings.ToUpper(allowed.Hostname()) + " ")

	record, err := pipeline.Normalize(context.Background(), SourceZKillboard, srv.URL+"/detail/45207823/")
	require.NoError(t, err)
	assert.Equal(t, int64(45207823), record.KillID())

	_, err = pipeline.Normalize(context.Background(), SourceZKillboard, "https://zkillboard.invalid/detail/45207823/")

	var invalid *InvalidSourceURLError
	require.ErrorAs(t, err, &invalid)
	assert.ErrorIs(t, err, errHostNotAllowed)
	assert.Equal(t, "invalid_source_url", ErrorKind(err))

	// an empty list allows every host again
	pipeline.RestrictHosts()
	_, err = pipeline.Normalize(context.Background(), SourceZKillboard, srv.URL+"/detail/45207823/")
	assert.NoError(t, err)
}

func TestParseSource(t *testing.T) {
	source, err := ParseSource(" zKillboard ")
	require.NoError(t, err)
	assert.Equal(t, SourceZKillboard, source)

	_, err = ParseSource("evekill")
	assert.Equal(t, "unknown_source", ErrorKind(err))
}
