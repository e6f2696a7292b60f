package models

// TriggerType identifies what starts evaluation of an automation.
type TriggerType string

const (
	TriggerTypeTime        TriggerType = "time"         // Fires at a wall-clock time on selected days
	TriggerTypeInterval    TriggerType = "interval"     // Fires every N seconds
	TriggerTypeStateChange TriggerType = "state_change" // Fires when a device field changes
	TriggerTypeMQTT        TriggerType = "mqtt"         // Fires on a matching MQTT message
)

// Trigger is a relational row owned by an Automation. Only the fields for its
// Type are meaningful; the rest stay zero.
type Trigger struct {
	ID           string      `json:"id"`
	AutomationID string      `json:"automation_id"`
	Type         TriggerType `json:"type"                       validate:"required,oneof=time interval state_change mqtt"`

	TimeAt          string   `json:"time_at,omitempty"`
	DaysOfWeek      []string `json:"days_of_week,omitempty"`
	IntervalSeconds int      `json:"interval_seconds,omitempty"`
	DeviceID        string   `json:"device_id,omitempty"`
	Field           string   `json:"field,omitempty"`
	MQTTTopic       string   `json:"mqtt_topic,omitempty"`
	MQTTPayload     string   `json:"mqtt_payload,omitempty"`
}

// MissingFields reports the required fields for the trigger's type that are
// unset. An empty result means the trigger is complete.
func (t *Trigger) MissingFields() []string {
	var missing []string

	switch t.Type {
	case TriggerTypeTime:
		if t.TimeAt == "" {
			missing = append(missing, "time_at")
		}

		if len(t.DaysOfWeek) == 0 {
			missing = append(missing, "days_of_week")
		}
	case TriggerTypeInterval:
		if t.IntervalSeconds <= 0 {
			missing = append(missing, "interval_seconds")
		}
	case TriggerTypeStateChange:
		if t.DeviceID == "" {
			missing = append(missing, "device_id")
		}

		if t.Field == "" {
			missing = append(missing, "field")
		}
	case TriggerTypeMQTT:
		if t.MQTTTopic == "" {
			missing = append(missing, "mqtt_topic")
		}
	default:
		missing = append(missing, "type")
	}

	return missing
}
