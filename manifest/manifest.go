// Package manifest builds and edits the XML property lists the widget
// extension and its host application ship with: the extension's Info.plist,
// the host Info.plist and the host entitlements.
package manifest

import (
	"bytes"
	"fmt"

	"howett.net/plist"
)

// Keys and values written by this package.
const (
	ExtensionPointWidgetKit = "com.apple.widgetkit-extension"

	KeyBundleIdentifier       = "CFBundleIdentifier"
	KeyNotificationUsage      = "NSUserNotificationUsageDescription"
	KeySupportsLiveActivities = "NSSupportsLiveActivities"

	EntitlementNotifications = "com.apple.developer.usernotifications"
	EntitlementActivityTypes = "com.apple.developer.activity-types"
)

var (
	notificationTypes = []string{"alert", "badge", "sound"}
	activityTypes     = []string{"liveActivities"}
)

// Dict is a decoded property list dictionary.
type Dict map[string]interface{}

// Decode parses a property list in any format. Empty or whitespace-only
// input yields an empty Dict so a missing file can be treated as blank.
func Decode(data []byte) (Dict, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Dict{}, nil
	}
	var m map[string]interface{}
	if _, err := plist.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding property list: %w", err)
	}
	if m == nil {
		m = map[string]interface{}{}
	}
	return Dict(m), nil
}

// Encode writes d as a tab-indented XML property list.
func Encode(d Dict) ([]byte, error) {
	out, err := plist.MarshalIndent(map[string]interface{}(d), plist.XMLFormat, "\t")
	if err != nil {
		return nil, fmt.Errorf("encoding property list: %w", err)
	}
	if !bytes.HasSuffix(out, []byte("\n")) {
		out = append(out, '\n')
	}
	return out, nil
}

// WidgetInfo returns the Info.plist of the widget extension. Build-time
// values are left as Xcode variables.
func WidgetInfo(bundleID, displayName string) ([]byte, error) {
	if bundleID == "" {
		return nil, fmt.Errorf("widget bundle identifier is required")
	}
	return Encode(Dict{
		"CFBundleDevelopmentRegion":     "$(DEVELOPMENT_LANGUAGE)",
		"CFBundleDisplayName":           displayName,
		"CFBundleExecutable":            "$(EXECUTABLE_NAME)",
		KeyBundleIdentifier:             bundleID,
		"CFBundleInfoDictionaryVersion": "6.0",
		"CFBundleName":                  "$(PRODUCT_NAME)",
		"CFBundlePackageType":           "$(PRODUCT_BUNDLE_PACKAGE_TYPE)",
		"CFBundleShortVersionString":    "1.0",
		"CFBundleVersion":               "1",
		"NSExtension": map[string]interface{}{
			"NSExtensionPointIdentifier": ExtensionPointWidgetKit,
		},
		KeySupportsLiveActivities: true,
	})
}

// MergeEntitlements adds the notification and Live Activity entitlements to
// d, keeping any values already declared. It reports whether d changed.
func MergeEntitlements(d Dict) (bool, error) {
	a, err := mergeStrings(d, EntitlementNotifications, notificationTypes)
	if err != nil {
		return false, err
	}
	b, err := mergeStrings(d, EntitlementActivityTypes, activityTypes)
	if err != nil {
		return false, err
	}
	return a || b, nil
}

// HasEntitlements reports whether d already declares everything
// MergeEntitlements would add.
func HasEntitlements(d Dict) bool {
	probe := Dict{}
	for k, v := range d {
		probe[k] = v
	}
	changed, err := MergeEntitlements(probe)
	return err == nil && !changed
}

// EnsureHostInfo sets the notification usage description when d has none
// and, with liveActivities set, NSSupportsLiveActivities. It reports whether
// d changed.
func EnsureHostInfo(d Dict, usage string, liveActivities bool) bool {
	changed := false
	if cur, ok := d[KeyNotificationUsage].(string); !ok || cur == "" {
		d[KeyNotificationUsage] = usage
		changed = true
	}
	if liveActivities {
		if cur, ok := d[KeySupportsLiveActivities].(bool); !ok || !cur {
			d[KeySupportsLiveActivities] = true
			changed = true
		}
	}
	return changed
}

func mergeStrings(d Dict, key string, want []string) (bool, error) {
	var have []interface{}
	switch v := d[key].(type) {
	case nil:
	case []interface{}:
		have = v
	default:
		return false, fmt.Errorf("%s: expected an array, found %T", key, v)
	}

	present := make(map[string]bool, len(have))
	for _, item := range have {
		if s, ok := item.(string); ok {
			present[s] = true
		}
	}
	changed := false
	for _, w := range want {
		if !present[w] {
			have = append(have, w)
			changed = true
		}
	}
	if changed {
		d[key] = have
	}
	return changed, nil
}
