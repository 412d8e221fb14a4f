package cot

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/opd-ai/cotwire/config"
)

// DefaultValue is the CoT placeholder for unknown ce/hae/le measurements.
const DefaultValue = "9999999.0"

// DefaultType is the CoT type used when an Event does not set one.
const DefaultType = "a-u-G"

// DefaultStaleSeconds is how long an event stays fresh when Stale is unset.
const DefaultStaleSeconds = 120

var xmlDeclaration = []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>`)

// Time returns the current UTC time as a W3C XML Schema dateTime string,
// the format CoT time/start/stale attributes use.
func Time() string {
	return time.Now().UTC().Format(config.W3CXMLDatetime)
}

// StaleTime returns the current UTC time plus the given number of seconds,
// for use as a CoT stale attribute.
func StaleTime(seconds int) string {
	return time.Now().UTC().Add(time.Duration(seconds) * time.Second).Format(config.W3CXMLDatetime)
}

// DefaultHostID identifies this process in hello events and flow tags.
func DefaultHostID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("cotwire@%s", host)
}

// Event is a minimal CoT event. Zero ce/hae/le values render as the CoT
// "unknown" placeholder.
type Event struct {
	UID      string
	Type     string
	Lat      float64
	Lon      float64
	CE       float64
	HAE      float64
	LE       float64
	Stale    int // seconds
	Callsign string
}

type xmlPoint struct {
	XMLName xml.Name `xml:"point"`
	Lat     string   `xml:"lat,attr"`
	Lon     string   `xml:"lon,attr"`
	LE      string   `xml:"le,attr"`
	HAE     string   `xml:"hae,attr"`
	CE      string   `xml:"ce,attr"`
}

type xmlFlowTags struct {
	XMLName xml.Name   `xml:"_flow-tags_"`
	Attrs   []xml.Attr `xml:",any,attr"`
}

type xmlContact struct {
	XMLName  xml.Name `xml:"contact"`
	Callsign string   `xml:"callsign,attr"`
}

type xmlDetail struct {
	XMLName  xml.Name `xml:"detail"`
	FlowTags xmlFlowTags
	Contact  *xmlContact `xml:",omitempty"`
}

type xmlEvent struct {
	XMLName xml.Name `xml:"event"`
	Version string   `xml:"version,attr"`
	Type    string   `xml:"type,attr"`
	UID     string   `xml:"uid,attr"`
	How     string   `xml:"how,attr"`
	Time    string   `xml:"time,attr"`
	Start   string   `xml:"start,attr"`
	Stale   string   `xml:"stale,attr"`
	Point   xmlPoint
	Detail  *xmlDetail `xml:",omitempty"`
}

// measurement renders a ce/hae/le value, mapping zero to the CoT unknown
// placeholder.
func measurement(v float64) string {
	if v == 0 {
		return DefaultValue
	}
	return fmt.Sprintf("%g", v)
}

// Bytes renders the event as a CoT XML document with declaration.
func (e Event) Bytes() ([]byte, error) {
	uid := e.UID
	if uid == "" {
		uid = DefaultHostID()
	}
	cotType := e.Type
	if cotType == "" {
		cotType = DefaultType
	}
	stale := e.Stale
	if stale == 0 {
		stale = DefaultStaleSeconds
	}

	now := Time()
	doc := xmlEvent{
		Version: "2.0",
		Type:    cotType,
		UID:     uid,
		How:     "m-g",
		Time:    now,
		Start:   now,
		Stale:   StaleTime(stale),
		Point: xmlPoint{
			Lat: fmt.Sprintf("%g", e.Lat),
			Lon: fmt.Sprintf("%g", e.Lon),
			LE:  measurement(e.LE),
			HAE: measurement(e.HAE),
			CE:  measurement(e.CE),
		},
		Detail: &xmlDetail{
			FlowTags: xmlFlowTags{Attrs: []xml.Attr{{
				Name:  xml.Name{Local: flowTag(uid)},
				Value: now,
			}}},
		},
	}
	if e.Callsign != "" {
		doc.Detail.Contact = &xmlContact{Callsign: e.Callsign}
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(xmlDeclaration)+1+len(body))
	out = append(out, xmlDeclaration...)
	out = append(out, '\n')
	out = append(out, body...)
	return out, nil
}

// flowTag derives a _flow-tags_ attribute name from a host identifier. The
// '@' is not valid in an XML attribute name.
func flowTag(hostID string) string {
	return strings.ReplaceAll(hostID+"-cotwire", "@", "-")
}

// HelloEvent generates the takPing liveness event announced when a client
// pipeline starts. An empty hostID falls back to "takPing".
func HelloEvent(hostID string) []byte {
	uid := hostID
	if uid == "" {
		uid = "takPing"
	}
	data, err := Event{UID: uid, Type: "t-x-d-d"}.Bytes()
	if err != nil {
		return nil
	}
	return data
}

// TakPong generates the reply to a takPing event.
func TakPong() []byte {
	now := Time()
	doc := xmlEvent{
		Version: "2.0",
		Type:    "t-x-d-d",
		UID:     "takPong",
		How:     "m-g",
		Time:    now,
		Start:   now,
		Stale:   StaleTime(3600),
		Point: xmlPoint{
			Lat: "0", Lon: "0",
			LE: DefaultValue, HAE: DefaultValue, CE: DefaultValue,
		},
	}
	data, err := xml.Marshal(doc)
	if err != nil {
		return nil
	}
	return data
}
