// Package topic parses and renders Sparkplug B topic strings.
package topic

import (
	"strings"

	"github.com/iotedgekit/go-sparkplugb/sperr"
)

// Namespace is the Sparkplug B topic namespace element.
const Namespace = "spBv1.0"

// MessageType identifies the Sparkplug message kind carried by a topic.
type MessageType string

const (
	NBIRTH MessageType = "NBIRTH"
	NDEATH MessageType = "NDEATH"
	NDATA  MessageType = "NDATA"
	NCMD   MessageType = "NCMD"
	DBIRTH MessageType = "DBIRTH"
	DDEATH MessageType = "DDEATH"
	DDATA  MessageType = "DDATA"
	DCMD   MessageType = "DCMD"
	STATE  MessageType = "STATE"
)

var messageTypes = map[string]MessageType{
	"NBIRTH": NBIRTH,
	"NDEATH": NDEATH,
	"NDATA":  NDATA,
	"NCMD":   NCMD,
	"DBIRTH": DBIRTH,
	"DDEATH": DDEATH,
	"DDATA":  DDATA,
	"DCMD":   DCMD,
	"STATE":  STATE,
}

// Topic is a parsed Sparkplug topic. For STATE topics EdgeNodeID carries the
// host application id and GroupID/DeviceID are empty.
type Topic struct {
	GroupID     string
	MessageType MessageType
	EdgeNodeID  string
	DeviceID    string
}

// IsNodeLevel reports whether the topic addresses the edge node itself.
func (t Topic) IsNodeLevel() bool { return t.DeviceID == "" }

// NodeKey returns the group/edge-node pair used to key per-node state.
func (t Topic) NodeKey() string { return t.GroupID + "/" + t.EdgeNodeID }

// String renders the canonical wire form of the topic.
func (t Topic) String() string {
	if t.MessageType == STATE {
		return "STATE/" + t.EdgeNodeID
	}
	s := Namespace + "/" + t.GroupID + "/" + string(t.MessageType) + "/" + t.EdgeNodeID
	if t.DeviceID != "" {
		s += "/" + t.DeviceID
	}
	return s
}

// Parse splits a topic string into its Sparkplug components. Failures are
// sperr.TopicInvalid errors carrying the offending text.
//
// Accepted forms:
//
//	spBv1.0/<group>/<type>/<edge_node>[/<device>]
//	STATE/<host_id>
func Parse(s string) (Topic, error) {
	parts := strings.Split(s, "/")

	if parts[0] == "STATE" {
		if len(parts) != 2 || parts[1] == "" {
			return Topic{}, sperr.New(sperr.TopicInvalid, "invalid STATE topic %q", s)
		}
		return Topic{MessageType: STATE, EdgeNodeID: parts[1]}, nil
	}

	if len(parts) < 4 {
		return Topic{}, sperr.New(sperr.TopicInvalid, "invalid Sparkplug topic %q", s)
	}
	if parts[0] != Namespace {
		return Topic{}, sperr.New(sperr.TopicInvalid, "invalid Sparkplug namespace in %q", s)
	}

	msgType, ok := messageTypes[parts[2]]
	if !ok || msgType == STATE {
		return Topic{}, sperr.New(sperr.TopicInvalid, "unknown message type %q in %q", parts[2], s)
	}

	t := Topic{
		GroupID:     parts[1],
		MessageType: msgType,
		EdgeNodeID:  parts[3],
	}
	if len(parts) > 4 {
		t.DeviceID = parts[4]
	}
	return t, nil
}

// NodeTopic builds a node-level topic for the given type.
func NodeTopic(group string, msgType MessageType, edgeNodeID string) Topic {
	return Topic{GroupID: group, MessageType: msgType, EdgeNodeID: edgeNodeID}
}

// DeviceTopic builds a device-level topic for the given type.
func DeviceTopic(group string, msgType MessageType, edgeNodeID, deviceID string) Topic {
	return Topic{GroupID: group, MessageType: msgType, EdgeNodeID: edgeNodeID, DeviceID: deviceID}
}

// StateTopic builds the host application STATE topic.
func StateTopic(hostID string) Topic {
	return Topic{MessageType: STATE, EdgeNodeID: hostID}
}

// SubscribeAll returns the wildcard filter covering a whole group.
func SubscribeAll(group string) string {
	return Namespace + "/" + group + "/#"
}

// SubscribeAllGroups returns the wildcard filter covering the whole namespace.
func SubscribeAllGroups() string {
	return Namespace + "/#"
}

// SubscribeNode returns the filter covering all message types of one node.
func SubscribeNode(group, edgeNodeID string) string {
	return Namespace + "/" + group + "/+/" + edgeNodeID + "/#"
}

// SubscribeState returns the filter for one host application's STATE topic.
func SubscribeState(hostID string) string {
	return "STATE/" + hostID
}
