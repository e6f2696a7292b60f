package models

// ActionType identifies the effect an action executes.
type ActionType string

const (
	ActionTypeDeviceControl ActionType = "device_control" // Set a device field
	ActionTypeMQTTPublish   ActionType = "mqtt_publish"   // Publish a raw MQTT message
	ActionTypeNotify        ActionType = "notify"         // Send a user notification
	ActionTypeLog           ActionType = "log"            // Append a log entry
)

// Action is a relational row owned by an Automation.
type Action struct {
	ID           string     `json:"id"`
	AutomationID string     `json:"automation_id"`
	Type         ActionType `json:"type"                         validate:"required,oneof=device_control mqtt_publish notify log"`

	DeviceID          string `json:"device_id,omitempty"`
	Field             string `json:"field,omitempty"`
	Value             any    `json:"value,omitempty"`
	MQTTTopic         string `json:"mqtt_topic,omitempty"`
	Payload           string `json:"payload,omitempty"`
	NotificationTitle string `json:"notification_title,omitempty"`
	Message           string `json:"message,omitempty"`
}

// MissingFields reports the required fields for the action's type that are
// unset.
func (a *Action) MissingFields() []string {
	var missing []string

	switch a.Type {
	case ActionTypeDeviceControl:
		if a.DeviceID == "" {
			missing = append(missing, "device_id")
		}

		if a.Field == "" {
			missing = append(missing, "field")
		}

		if IsUnset(a.Value) {
			missing = append(missing, "value")
		}
	case ActionTypeMQTTPublish:
		if a.MQTTTopic == "" {
			missing = append(missing, "mqtt_topic")
		}
	case ActionTypeNotify, ActionTypeLog:
		if a.Message == "" {
			missing = append(missing, "message")
		}
	default:
		missing = append(missing, "type")
	}

	return missing
}
