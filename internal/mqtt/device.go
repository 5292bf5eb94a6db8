package mqtt

// DeviceInfo holds the Home Assistant device registry fields shared by
// both discovery payloads, so HA groups the entities under one device.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version"`
}

// EntityConfig is the JSON payload of an HA MQTT discovery message for a
// sensor or binary_sensor. PayloadOn and PayloadOff apply to binary
// sensors only.
type EntityConfig struct {
	Name                string     `json:"name"`
	ObjectID            string     `json:"object_id,omitempty"`
	UniqueID            string     `json:"unique_id"`
	StateTopic          string     `json:"state_topic"`
	AvailabilityTopic   string     `json:"availability_topic"`
	JsonAttributesTopic string     `json:"json_attributes_topic,omitempty"`
	Device              DeviceInfo `json:"device"`
	Icon                string     `json:"icon,omitempty"`
	UnitOfMeasurement   string     `json:"unit_of_measurement,omitempty"`
	StateClass          string     `json:"state_class,omitempty"`
	PayloadOn           string     `json:"payload_on,omitempty"`
	PayloadOff          string     `json:"payload_off,omitempty"`
}

// NewDeviceInfo creates a DeviceInfo keyed by the persistent instance ID.
// The device name is what HA shows in the UI.
func NewDeviceInfo(instanceID, deviceName, version string) DeviceInfo {
	return DeviceInfo{
		Identifiers:  []string{instanceID},
		Name:         deviceName,
		Manufacturer: "gtasks",
		Model:        "Google Tasks bridge",
		SWVersion:    version,
	}
}
