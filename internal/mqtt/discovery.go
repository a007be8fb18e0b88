package mqtt

import (
	"regexp"
	"strings"
)

const manufacturer = "Robart"

// Announcement describes one robot for Home Assistant MQTT discovery.
type Announcement struct {
	ID       string
	UniqueID string
	Name     string
	Model    string
	Firmware string
	Features []string
}

type availability struct {
	Topic string `json:"topic"`
}

type deviceBlock struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name,omitempty"`
	Model        string   `json:"model,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
	Manufacturer string   `json:"manufacturer"`
}

type discoveryConfig struct {
	Name                string         `json:"name,omitempty"`
	UniqueID            string         `json:"unique_id"`
	Schema              string         `json:"schema"`
	CommandTopic        string         `json:"command_topic"`
	SendCommandTopic    string         `json:"send_command_topic"`
	StateTopic          string         `json:"state_topic"`
	JSONAttributesTopic string         `json:"json_attributes_topic"`
	Availability        []availability `json:"availability"`
	AvailabilityMode    string         `json:"availability_mode"`
	SupportedFeatures   []string       `json:"supported_features"`
	PayloadStart        string         `json:"payload_start"`
	PayloadStop         string         `json:"payload_stop"`
	PayloadPause        string         `json:"payload_pause"`
	PayloadReturnToBase string         `json:"payload_return_to_base"`
	Device              deviceBlock    `json:"device"`
}

var unsafeNodeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// nodeID is the discovery object id. It is derived from the adapter id only,
// so a robot keeps its topic when its unique id is learned after startup.
func nodeID(a Announcement) string {
	return strings.Trim(unsafeNodeChars.ReplaceAllString(a.ID, "_"), "_")
}

func deviceIdentifiers(node string, a Announcement) []string {
	ids := []string{"myvacbot_" + node}
	if a.UniqueID != "" {
		ids = append(ids, "robart_"+a.UniqueID)
	}
	return ids
}

func discoveryTopic(prefix string, a Announcement) string {
	return strings.TrimSuffix(prefix, "/") + "/vacuum/" + nodeID(a) + "/config"
}

func newDiscoveryConfig(pub Publisher, a Announcement) discoveryConfig {
	node := nodeID(a)
	features := a.Features
	if features == nil {
		features = []string{}
	}
	return discoveryConfig{
		Name:                a.Name,
		UniqueID:            "myvacbot_" + node,
		Schema:              "state",
		CommandTopic:        pub.CommandTopic(a.ID),
		SendCommandTopic:    pub.CommandTopic(a.ID),
		StateTopic:          pub.StatusTopic(a.ID, "state"),
		JSONAttributesTopic: pub.StatusTopic(a.ID, "attributes"),
		Availability: []availability{
			{Topic: pub.BridgeTopic()},
			{Topic: pub.StatusTopic(a.ID, "availability")},
		},
		AvailabilityMode:    "all",
		SupportedFeatures:   features,
		PayloadStart:        "start",
		PayloadStop:         "stop",
		PayloadPause:        "pause",
		PayloadReturnToBase: "return_to_base",
		Device: deviceBlock{
			Identifiers:  deviceIdentifiers(node, a),
			Name:         a.Name,
			Model:        a.Model,
			SWVersion:    a.Firmware,
			Manufacturer: manufacturer,
		},
	}
}
