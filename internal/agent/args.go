package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

const defaultBusinessPlaceholder = "default"

// argumentPatch describes what prepareArguments changed.
type argumentPatch struct {
	// OverriddenBusiness is the business id the agent supplied and that was
	// replaced by the platform business id.
	OverriddenBusiness string
	InjectedPhone      bool
}

// prepareArguments fills in the sender phone the agent leaves out and
// pins every call to the platform business id, whatever the agent sent.
func prepareArguments(raw, businessID, sender string) (json.RawMessage, argumentPatch, error) {
	var patch argumentPatch

	args := map[string]any{}
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return nil, patch, fmt.Errorf("invalid tool arguments: %w", err)
		}
		if args == nil {
			args = map[string]any{}
		}
	}

	current, _ := args["businessId"].(string)
	if current != "" && current != defaultBusinessPlaceholder && current != businessID {
		patch.OverriddenBusiness = current
	}
	args["businessId"] = businessID

	if sender != "" {
		if isBlank(args["phoneNumber"]) {
			args["phoneNumber"] = sender
			patch.InjectedPhone = true
		}
		if details, ok := args["eventDetails"].(map[string]any); ok {
			if isBlank(details["phone"]) {
				details["phone"] = sender
				patch.InjectedPhone = true
			}
		} else if _, flat := args["time"]; flat && isBlank(args["phone"]) {
			// Booking details sent flat next to businessId.
			args["phone"] = sender
			patch.InjectedPhone = true
		}
	}

	out, err := json.Marshal(args)
	if err != nil {
		return nil, patch, fmt.Errorf("failed to encode tool arguments: %w", err)
	}
	return out, patch, nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
