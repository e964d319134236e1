package model

// ConditionType names the measurement a scenario condition compares against.
type ConditionType string

const (
	ConditionMotion      ConditionType = "MOTION"
	ConditionLuminosity  ConditionType = "LUMINOSITY"
	ConditionSwitch      ConditionType = "SWITCH"
	ConditionTemperature ConditionType = "TEMPERATURE"
	ConditionCO2Level    ConditionType = "CO2LEVEL"
	ConditionHumidity    ConditionType = "HUMIDITY"
)

// ConditionOperation is the comparison applied to the sensor reading.
type ConditionOperation string

const (
	OperationEquals      ConditionOperation = "EQUALS"
	OperationGreaterThan ConditionOperation = "GREATER_THAN"
	OperationLowerThan   ConditionOperation = "LOWER_THAN"
)

// ActionType names the command applied to a device when a scenario triggers.
type ActionType string

const (
	ActionActivate   ActionType = "ACTIVATE"
	ActionDeactivate ActionType = "DEACTIVATE"
	ActionInverse    ActionType = "INVERSE"
	ActionSetValue   ActionType = "SET_VALUE"
)

// Sensor is a device registration record. A sensor id is unique per hub.
type Sensor struct {
	ID         string `json:"id"`
	HubID      string `json:"hub_id"`
	DeviceType string `json:"device_type,omitempty"`
}

// Condition is one threshold comparison against one sensor's reading. It is
// owned by exactly one scenario and keyed there by sensor id.
type Condition struct {
	Type      ConditionType      `json:"type"`
	Operation ConditionOperation `json:"operation"`
	Value     int                `json:"value"`
}

// Check reports whether the reading satisfies the condition.
func (c Condition) Check(reading int) bool {
	switch c.Operation {
	case OperationEquals:
		return reading == c.Value
	case OperationGreaterThan:
		return reading > c.Value
	case OperationLowerThan:
		return reading < c.Value
	default:
		return false
	}
}

// Action is one device command, keyed by sensor id within its scenario.
// Value is meaningful only for SET_VALUE.
type Action struct {
	Type  ActionType `json:"type"`
	Value int        `json:"value"`
}

// Scenario is a named automation rule of one hub: all conditions must hold
// for the actions to fire. Unique per (hub id, name).
type Scenario struct {
	HubID      string               `json:"hub_id"`
	Name       string               `json:"name"`
	Conditions map[string]Condition `json:"conditions"`
	Actions    map[string]Action    `json:"actions"`
}

// Reading extracts the measurement named by t from a sensor payload.
// Booleans map to 1/0. The second result is false when the payload variant
// cannot produce the measurement.
func Reading(p SensorPayload, t ConditionType) (int, bool) {
	switch t {
	case ConditionTemperature:
		switch v := p.(type) {
		case ClimatePayload:
			return v.TemperatureC, true
		case TemperaturePayload:
			return v.TemperatureC, true
		}
	case ConditionHumidity:
		if v, ok := p.(ClimatePayload); ok {
			return v.Humidity, true
		}
	case ConditionCO2Level:
		if v, ok := p.(ClimatePayload); ok {
			return v.CO2Level, true
		}
	case ConditionLuminosity:
		if v, ok := p.(LightPayload); ok {
			return v.Luminosity, true
		}
	case ConditionMotion:
		if v, ok := p.(MotionPayload); ok {
			return boolReading(v.Motion), true
		}
	case ConditionSwitch:
		if v, ok := p.(SwitchPayload); ok {
			return boolReading(v.State), true
		}
	}
	return 0, false
}

func boolReading(b bool) int {
	if b {
		return 1
	}
	return 0
}
