package models

// ConditionType identifies the gate a condition applies.
type ConditionType string

const (
	ConditionTypeSimple    ConditionType = "simple"      // Compare a device field against a value
	ConditionTypeTime      ConditionType = "time"        // Current time matches
	ConditionTypeDayOfWeek ConditionType = "day_of_week" // Current weekday matches
)

// Condition is a relational row owned by an Automation.
//
// Value is deliberately untyped: the editor submits strings, numbers or
// booleans and "0"/"false" are valid comparison targets. Only nil and the
// empty string count as unset.
type Condition struct {
	ID           string        `json:"id"`
	AutomationID string        `json:"automation_id"`
	Type         ConditionType `json:"type"                    validate:"required,oneof=simple time day_of_week"`

	DeviceID   string   `json:"device_id,omitempty"`
	Field      string   `json:"field,omitempty"`
	Operator   string   `json:"operator,omitempty"`
	Value      any      `json:"value,omitempty"`
	TimeAt     string   `json:"time_at,omitempty"`
	DaysOfWeek []string `json:"days_of_week,omitempty"`
}

// MissingFields reports the required fields for the condition's type that are
// unset.
func (c *Condition) MissingFields() []string {
	var missing []string

	switch c.Type {
	case ConditionTypeSimple:
		if c.DeviceID == "" {
			missing = append(missing, "device_id")
		}

		if c.Field == "" {
			missing = append(missing, "field")
		}

		if c.Operator == "" {
			missing = append(missing, "operator")
		}

		if IsUnset(c.Value) {
			missing = append(missing, "value")
		}
	case ConditionTypeTime:
		if c.TimeAt == "" {
			missing = append(missing, "time_at")
		}
	case ConditionTypeDayOfWeek:
		if len(c.DaysOfWeek) == 0 {
			missing = append(missing, "days_of_week")
		}
	default:
		missing = append(missing, "type")
	}

	return missing
}

// IsUnset reports whether a submitted value counts as missing. Zero and false
// are legitimate values; only nil and "" are not.
func IsUnset(v any) bool {
	if v == nil {
		return true
	}

	s, ok := v.(string)

	return ok && s == ""
}
