package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotedgekit/go-sparkplugb/sperr"
)

func TestParseNodeLevel(t *testing.T) {
	tp, err := Parse("spBv1.0/Energy/NBIRTH/Gateway01")
	require.NoError(t, err)
	assert.Equal(t, Topic{
		GroupID:     "Energy",
		MessageType: NBIRTH,
		EdgeNodeID:  "Gateway01",
	}, tp)
	assert.True(t, tp.IsNodeLevel())
}

func TestParseDeviceLevel(t *testing.T) {
	tp, err := Parse("spBv1.0/Energy/DDATA/Gateway01/boilerRoom")
	require.NoError(t, err)
	assert.Equal(t, Topic{
		GroupID:     "Energy",
		MessageType: DDATA,
		EdgeNodeID:  "Gateway01",
		DeviceID:    "boilerRoom",
	}, tp)
	assert.False(t, tp.IsNodeLevel())
	assert.Equal(t, "Energy/Gateway01", tp.NodeKey())
}

func TestParseState(t *testing.T) {
	tp, err := Parse("STATE/SCADA01")
	require.NoError(t, err)
	assert.Equal(t, Topic{MessageType: STATE, EdgeNodeID: "SCADA01"}, tp)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		topic string
	}{
		{"empty", ""},
		{"wrong namespace", "spAv1.0/Energy/NBIRTH/Gateway01"},
		{"too few segments", "spBv1.0/Energy/NBIRTH"},
		{"unknown type", "spBv1.0/Energy/NFOO/Gateway01"},
		{"state in namespace", "spBv1.0/Energy/STATE/SCADA01"},
		{"state without host", "STATE"},
		{"state with empty host", "STATE/"},
		{"plain mqtt topic", "sensors/temperature"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.topic)
			require.Error(t, err)
			assert.True(t, sperr.IsKind(err, sperr.TopicInvalid))
			if tc.topic != "" {
				assert.Contains(t, err.Error(), tc.topic)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	topics := []Topic{
		{GroupID: "Energy", MessageType: NBIRTH, EdgeNodeID: "Gateway01"},
		{GroupID: "Energy", MessageType: NDEATH, EdgeNodeID: "Gateway01"},
		{GroupID: "Energy", MessageType: NDATA, EdgeNodeID: "Gateway01"},
		{GroupID: "Energy", MessageType: NCMD, EdgeNodeID: "Gateway01"},
		{GroupID: "Energy", MessageType: DBIRTH, EdgeNodeID: "Gateway01", DeviceID: "dev1"},
		{GroupID: "Energy", MessageType: DDEATH, EdgeNodeID: "Gateway01", DeviceID: "dev1"},
		{GroupID: "Energy", MessageType: DDATA, EdgeNodeID: "Gateway01", DeviceID: "dev1"},
		{GroupID: "Energy", MessageType: DCMD, EdgeNodeID: "Gateway01", DeviceID: "dev1"},
		{MessageType: STATE, EdgeNodeID: "SCADA01"},
	}
	for _, in := range topics {
		t.Run(in.String(), func(t *testing.T) {
			out, err := Parse(in.String())
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestRender(t *testing.T) {
	assert.Equal(t, "spBv1.0/Energy/NBIRTH/Gateway01",
		NodeTopic("Energy", NBIRTH, "Gateway01").String())
	assert.Equal(t, "spBv1.0/Energy/DCMD/Gateway01/pump",
		DeviceTopic("Energy", DCMD, "Gateway01", "pump").String())
	assert.Equal(t, "STATE/SCADA01", StateTopic("SCADA01").String())
}

func TestSubscriptionFilters(t *testing.T) {
	assert.Equal(t, "spBv1.0/Energy/#", SubscribeAll("Energy"))
	assert.Equal(t, "spBv1.0/#", SubscribeAllGroups())
	assert.Equal(t, "spBv1.0/Energy/+/Gateway01/#", SubscribeNode("Energy", "Gateway01"))
	assert.Equal(t, "STATE/SCADA01", SubscribeState("SCADA01"))
}
