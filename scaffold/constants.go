package scaffold

import "github.com/nomis52/dinamicisland/templates"

const (
	// TargetName is the name of the extension target, its group and its directory.
	TargetName = "DinamicIslandWidget"

	MinimumDeploymentTarget = "16.1"
	DeviceFamily            = "1,2"
	SwiftVersion            = "5.0"

	manifestName = "Info.plist"
)

// WeakFrameworks are linked optionally into the extension.
var WeakFrameworks = []string{
	"WidgetKit.framework",
	"SwiftUI.framework",
	"ActivityKit.framework",
}

// widgetSources are the template artifacts compiled into the extension.
var widgetSources = []string{templates.WidgetFile, templates.BundleFile}

// WidgetBundleID returns the extension bundle identifier for an app.
func WidgetBundleID(appBundleID string) string {
	return appBundleID + "." + TargetName
}
