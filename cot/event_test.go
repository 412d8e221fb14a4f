package cot

import (
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/cotwire/config"
)

// parsedEvent mirrors the attributes we assert on.
type parsedEvent struct {
	XMLName xml.Name `xml:"event"`
	Version string   `xml:"version,attr"`
	Type    string   `xml:"type,attr"`
	UID     string   `xml:"uid,attr"`
	How     string   `xml:"how,attr"`
	Time    string   `xml:"time,attr"`
	Stale   string   `xml:"stale,attr"`
	Point   struct {
		Lat string `xml:"lat,attr"`
		Lon string `xml:"lon,attr"`
		CE  string `xml:"ce,attr"`
	} `xml:"point"`
}

func TestEventBytes(t *testing.T) {
	data, err := Event{
		UID:  "tracker-1",
		Type: "a-f-G-U-C",
		Lat:  37.76,
		Lon:  -122.4975,
	}.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(data), `<?xml version="1.0"`)

	var ev parsedEvent
	require.NoError(t, xml.Unmarshal(data, &ev))
	assert.Equal(t, "2.0", ev.Version)
	assert.Equal(t, "a-f-G-U-C", ev.Type)
	assert.Equal(t, "tracker-1", ev.UID)
	assert.Equal(t, "m-g", ev.How)
	assert.Equal(t, "37.76", ev.Point.Lat)
	assert.Equal(t, "-122.4975", ev.Point.Lon)
	assert.Equal(t, DefaultValue, ev.Point.CE, "unset measurement renders as placeholder")
}

func TestEventDefaults(t *testing.T) {
	data, err := Event{}.Bytes()
	require.NoError(t, err)

	var ev parsedEvent
	require.NoError(t, xml.Unmarshal(data, &ev))
	assert.Equal(t, DefaultType, ev.Type)
	assert.Equal(t, DefaultHostID(), ev.UID)
	assert.Equal(t, "0", ev.Point.Lat)
}

func TestTimeFormat(t *testing.T) {
	stamp := Time()
	parsed, err := time.Parse(config.W3CXMLDatetime, stamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, time.Minute)
}

func TestStaleTimeIsInTheFuture(t *testing.T) {
	parsed, err := time.Parse(config.W3CXMLDatetime, StaleTime(120))
	require.NoError(t, err)
	assert.True(t, parsed.After(time.Now().UTC().Add(time.Minute)))
}

func TestHelloEvent(t *testing.T) {
	data := HelloEvent("app@host-1")
	require.NotNil(t, data)

	var ev parsedEvent
	require.NoError(t, xml.Unmarshal(data, &ev))
	assert.Equal(t, "t-x-d-d", ev.Type)
	assert.Equal(t, "app@host-1", ev.UID)
}

func TestHelloEventDefaultUID(t *testing.T) {
	var ev parsedEvent
	require.NoError(t, xml.Unmarshal(HelloEvent(""), &ev))
	assert.Equal(t, "takPing", ev.UID)
}

func TestTakPong(t *testing.T) {
	var ev parsedEvent
	require.NoError(t, xml.Unmarshal(TakPong(), &ev))
	assert.Equal(t, "takPong", ev.UID)
	assert.Equal(t, "t-x-d-d", ev.Type)
}

func TestFlowTagReplacesAt(t *testing.T) {
	assert.Equal(t, "app-host-cotwire", flowTag("app@host"))
}
