package scaffold

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nomis52/dinamicisland/config"
	"github.com/nomis52/dinamicisland/logging"
	"github.com/nomis52/dinamicisland/manifest"
	"github.com/nomis52/dinamicisland/metrics"
	"github.com/nomis52/dinamicisland/status"
	"github.com/nomis52/dinamicisland/templates"
	"github.com/nomis52/dinamicisland/workflow"
	"github.com/nomis52/dinamicisland/xcodeproj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newProjectRoot copies testdata into a temp dir laid out like an app
// after `expo prebuild`.
func newProjectRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.CopyFS(root, os.DirFS("testdata")))
	return root
}

func testConfig(root string) *config.Config {
	cfg := &config.Config{Project: config.ProjectConfig{Root: root}}
	cfg.SetDefaults()
	return cfg
}

func pbxprojPath(root string) string {
	return filepath.Join(root, "ios", "HelloWorld.xcodeproj", "project.pbxproj")
}

func loadDescriptor(t *testing.T, root string) *xcodeproj.Project {
	t.Helper()
	p, err := xcodeproj.Load(pbxprojPath(root))
	require.NoError(t, err)
	return p
}

func readDict(t *testing.T, path string) manifest.Dict {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	d, err := manifest.Decode(data)
	require.NoError(t, err)
	return d
}

func run(t *testing.T, cfg *config.Config, opts ...Option) (*Report, error) {
	t.Helper()
	return Run(context.Background(), cfg, logging.Discard(), opts...)
}

func TestRun_ScaffoldsProject(t *testing.T) {
	root := newProjectRoot(t)

	report, err := run(t, testConfig(root))
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.True(t, report.Changed())

	ios := filepath.Join(root, "ios")
	for _, f := range []string{
		"DinamicIslandWidget/DinamicIslandActivityAttributes.swift",
		"DinamicIslandWidget/DinamicIslandWidget.swift",
		"DinamicIslandWidget/DinamicIslandWidgetBundle.swift",
		"DinamicIslandWidget/Info.plist",
		"DinamicIslandActivityAttributes.swift",
	} {
		assert.FileExists(t, filepath.Join(ios, filepath.FromSlash(f)))
	}

	widgetInfo := readDict(t, filepath.Join(ios, "DinamicIslandWidget", "Info.plist"))
	assert.Equal(t, "com.example.helloworld.DinamicIslandWidget", widgetInfo[manifest.KeyBundleIdentifier])

	p := loadDescriptor(t, root)
	ext, ok := p.FindTarget(TargetName)
	require.True(t, ok)
	assert.Equal(t, xcodeproj.ProductTypeAppExtension, ext.ProductType)

	configs, err := p.Configurations(ext)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	for _, c := range configs {
		assert.Equal(t, "com.example.helloworld.DinamicIslandWidget", c.BuildSettings["PRODUCT_BUNDLE_IDENTIFIER"], c.Name)
		assert.Equal(t, "DinamicIslandWidget/Info.plist", c.BuildSettings["INFOPLIST_FILE"], c.Name)
		assert.Equal(t, MinimumDeploymentTarget, c.BuildSettings["IPHONEOS_DEPLOYMENT_TARGET"], c.Name)
		assert.Equal(t, DeviceFamily, c.BuildSettings["TARGETED_DEVICE_FAMILY"], c.Name)
		assert.Equal(t, SwiftVersion, c.BuildSettings["SWIFT_VERSION"], c.Name)
	}
	for _, fw := range WeakFrameworks {
		assert.True(t, p.IsWeakLinked(ext, fw), fw)
	}

	main, err := p.MainTarget()
	require.NoError(t, err)
	assert.True(t, p.IsEmbedded(main, ext))

	paths := func(target *xcodeproj.Target) []string {
		ph, ok := p.Phase(target, xcodeproj.IsaSourcesBuildPhase)
		require.True(t, ok, target.Name)
		var out []string
		for _, ref := range p.PhaseFiles(ph) {
			out = append(out, ref.Path)
		}
		return out
	}
	assert.ElementsMatch(t, []string{
		"DinamicIslandWidget.swift",
		"DinamicIslandWidgetBundle.swift",
		"DinamicIslandActivityAttributes.swift",
	}, paths(ext))
	assert.Contains(t, paths(main), "DinamicIslandActivityAttributes.swift")

	entitlements, ok := p.BuildSetting(main, "CODE_SIGN_ENTITLEMENTS")
	assert.True(t, ok)
	assert.Equal(t, "HelloWorld/HelloWorld.entitlements", entitlements)
	ent := readDict(t, filepath.Join(ios, "HelloWorld", "HelloWorld.entitlements"))
	assert.True(t, manifest.HasEntitlements(ent))

	info := readDict(t, filepath.Join(ios, "HelloWorld", "Info.plist"))
	assert.Equal(t, "SplashScreen", info["UILaunchStoryboardName"])
	assert.NotEmpty(t, info[manifest.KeyNotificationUsage])
	assert.Equal(t, true, info[manifest.KeySupportsLiveActivities])
}

func TestRun_IsIdempotent(t *testing.T) {
	root := newProjectRoot(t)
	cfg := testConfig(root)

	_, err := run(t, cfg)
	require.NoError(t, err)
	first, err := os.ReadFile(pbxprojPath(root))
	require.NoError(t, err)

	report, err := run(t, cfg)
	require.NoError(t, err)
	assert.False(t, report.Changed(), "second run must not change anything")

	second, err := os.ReadFile(pbxprojPath(root))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	p := loadDescriptor(t, root)
	count := 0
	for _, target := range p.TargetList() {
		if target.Name == TargetName {
			count++
		}
	}
	assert.Equal(t, 1, count)

	ext, _ := p.FindTarget(TargetName)
	frameworks, ok := p.Phase(ext, xcodeproj.IsaFrameworksBuildPhase)
	require.True(t, ok)
	assert.Len(t, frameworks.Files, len(WeakFrameworks))

	locate, ok := report.Step("LocateTarget")
	require.True(t, ok)
	assert.Contains(t, locate.Status, "already exists")
}

func TestRun_ExistingTargetIsLeftAlone(t *testing.T) {
	root := newProjectRoot(t)
	cfg := testConfig(root)
	_, err := run(t, cfg)
	require.NoError(t, err)

	p := loadDescriptor(t, root)
	ext, _ := p.FindTarget(TargetName)
	_, err = p.SetBuildSetting(ext, "IPHONEOS_DEPLOYMENT_TARGET", "17.0")
	require.NoError(t, err)
	out, err := p.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pbxprojPath(root), out, 0o644))

	_, err = run(t, cfg)
	require.NoError(t, err)

	p = loadDescriptor(t, root)
	ext, _ = p.FindTarget(TargetName)
	v, _ := p.BuildSetting(ext, "IPHONEOS_DEPLOYMENT_TARGET")
	assert.Equal(t, "17.0", v)
}

func TestRun_MissingNativeDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.json"), []byte("{}"), 0o644))

	report, err := run(t, testConfig(root))
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
	assert.Contains(t, err.Error(), filepath.Join(root, "ios"))
	assert.Contains(t, err.Error(), "expo prebuild")

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1, "nothing may be created")

	require.NotNil(t, report)
	assert.False(t, report.Succeeded())
	assert.Len(t, report.Failed(), 1)
	for _, s := range report.Steps[1:] {
		assert.Equal(t, workflow.Skipped, s.State, s.ID.Type)
	}
}

func TestRun_PreconditionFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T, root string, cfg *config.Config)
		wantErr string
	}{
		{
			name: "no xcodeproj",
			mutate: func(t *testing.T, root string, cfg *config.Config) {
				require.NoError(t, os.RemoveAll(filepath.Join(root, "ios", "HelloWorld.xcodeproj")))
			},
			wantErr: "no .xcodeproj found",
		},
		{
			name: "two xcodeprojs",
			mutate: func(t *testing.T, root string, cfg *config.Config) {
				require.NoError(t, os.Mkdir(filepath.Join(root, "ios", "Other.xcodeproj"), 0o755))
			},
			wantErr: "set project.xcodeproj",
		},
		{
			name: "configured xcodeproj missing",
			mutate: func(t *testing.T, root string, cfg *config.Config) {
				cfg.Project.XcodeProject = "Missing.xcodeproj"
			},
			wantErr: "Missing.xcodeproj",
		},
		{
			name: "corrupt descriptor",
			mutate: func(t *testing.T, root string, cfg *config.Config) {
				require.NoError(t, os.WriteFile(pbxprojPath(root), []byte("{ objects = "), 0o644))
			},
			wantErr: "project descriptor",
		},
		{
			name: "no bundle identifier",
			mutate: func(t *testing.T, root string, cfg *config.Config) {
				data, err := os.ReadFile(pbxprojPath(root))
				require.NoError(t, err)
				data = bytes.ReplaceAll(data, []byte("PRODUCT_BUNDLE_IDENTIFIER = com.example.helloworld;"), nil)
				require.NoError(t, os.WriteFile(pbxprojPath(root), data, 0o644))
			},
			wantErr: "DINAMICISLAND_PROJECT_BUNDLE_IDENTIFIER",
		},
		{
			name: "missing Info.plist",
			mutate: func(t *testing.T, root string, cfg *config.Config) {
				require.NoError(t, os.Remove(filepath.Join(root, "ios", "HelloWorld", "Info.plist")))
			},
			wantErr: "host Info.plist",
		},
		{
			name: "templates dir missing",
			mutate: func(t *testing.T, root string, cfg *config.Config) {
				cfg.Scaffold.TemplatesDir = filepath.Join(root, "templates")
			},
			wantErr: "template bundle",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newProjectRoot(t)
			cfg := testConfig(root)
			tt.mutate(t, root, cfg)

			_, err := run(t, cfg)
			require.Error(t, err)
			assert.True(t, IsPrecondition(err), err.Error())
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.NoDirExists(t, filepath.Join(root, "ios", TargetName))
		})
	}
}

func TestRun_BundleIdentifierOverride(t *testing.T) {
	root := newProjectRoot(t)
	cfg := testConfig(root)
	cfg.Project.BundleIdentifier = "com.acme.app"

	_, err := run(t, cfg)
	require.NoError(t, err)

	p := loadDescriptor(t, root)
	ext, _ := p.FindTarget(TargetName)
	v, _ := p.BuildSetting(ext, "PRODUCT_BUNDLE_IDENTIFIER")
	assert.Equal(t, "com.acme.app.DinamicIslandWidget", v)
}

func TestRun_IncompleteTemplates(t *testing.T) {
	root := newProjectRoot(t)
	before, err := os.ReadFile(pbxprojPath(root))
	require.NoError(t, err)

	tmpl := filepath.Join(root, "templates")
	require.NoError(t, os.MkdirAll(tmpl, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpl, templates.AttributesFile), []byte("// attrs"), 0o644))

	cfg := testConfig(root)
	cfg.Scaffold.TemplatesDir = tmpl
	collector := logging.NewLogCollector()

	report, err := run(t, cfg, WithLogCollector(collector))
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
	assert.ErrorIs(t, err, templates.ErrIncomplete)
	assert.Contains(t, err.Error(), templates.WidgetFile)
	assert.Contains(t, err.Error(), templates.BundleFile)

	assert.NoDirExists(t, filepath.Join(root, "ios", TargetName), "nothing is provisioned for an incomplete bundle")
	after, err := os.ReadFile(pbxprojPath(root))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "CheckPreconditions", failed[0].ID.Type)
	assert.NotEmpty(t, failed[0].Logs)

	save, _ := report.Step("SaveProject")
	assert.Equal(t, workflow.Skipped, save.State)

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf))
	assert.Contains(t, buf.String(), "logs for scaffold.CheckPreconditions")
}

func TestStageArtifacts_TemplateRemovedAfterCheck(t *testing.T) {
	root := newProjectRoot(t)
	iosDir := filepath.Join(root, "ios")
	require.NoError(t, os.MkdirAll(filepath.Join(iosDir, TargetName), 0o755))

	tmpl := filepath.Join(root, "templates")
	for _, name := range templates.Artifacts {
		path := filepath.Join(tmpl, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("// "+name), 0o644))
	}
	bundle, err := templates.Open(tmpl)
	require.NoError(t, err)
	require.NoError(t, bundle.Verify())
	removed := filepath.Join(tmpl, "Widgets", "DinamicIslandWidget.swift")
	require.NoError(t, os.Remove(removed))

	logger := logging.Discard()
	step := &StageArtifacts{
		Logger: logger,
		Status: status.NewLine(workflow.GetStepID(&StageArtifacts{}), logger, nil),
		Pre:    &CheckPreconditions{templates: bundle, iosDir: iosDir},
	}

	err = step.Execute(context.Background())
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, removed, ioErr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, filepath.Join(iosDir, TargetName, "DinamicIslandActivityAttributes.swift"))
}

func TestRun_LiveActivitiesDisabled(t *testing.T) {
	root := newProjectRoot(t)
	cfg := testConfig(root)
	off := false
	cfg.Scaffold.EnableLiveActivities = &off

	_, err := run(t, cfg)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(root, "ios", "HelloWorld", "HelloWorld.entitlements"))
	info := readDict(t, filepath.Join(root, "ios", "HelloWorld", "Info.plist"))
	assert.NotEmpty(t, info[manifest.KeyNotificationUsage])
	assert.NotContains(t, info, manifest.KeySupportsLiveActivities)

	p := loadDescriptor(t, root)
	_, ok := p.FindTarget(TargetName)
	assert.True(t, ok)
	main, _ := p.MainTarget()
	_, ok = p.BuildSetting(main, "CODE_SIGN_ENTITLEMENTS")
	assert.False(t, ok)
}

func TestRun_AutoScaffoldDisabled(t *testing.T) {
	root := newProjectRoot(t)
	cfg := testConfig(root)
	off := false
	cfg.Scaffold.AutoScaffold = &off

	report, err := run(t, cfg)
	require.NoError(t, err)
	assert.True(t, report.Changed())

	assert.NoDirExists(t, filepath.Join(root, "ios", TargetName))
	assert.NoFileExists(t, filepath.Join(root, "ios", "DinamicIslandActivityAttributes.swift"))

	p := loadDescriptor(t, root)
	_, ok := p.FindTarget(TargetName)
	assert.False(t, ok)

	main, _ := p.MainTarget()
	v, _ := p.BuildSetting(main, "CODE_SIGN_ENTITLEMENTS")
	assert.Equal(t, "HelloWorld/HelloWorld.entitlements", v)
	assert.FileExists(t, filepath.Join(root, "ios", "HelloWorld", "HelloWorld.entitlements"))
}

func TestRun_KeepsExistingEntitlements(t *testing.T) {
	root := newProjectRoot(t)
	entPath := filepath.Join(root, "ios", "HelloWorld", "Custom.entitlements")
	existing, err := manifest.Encode(manifest.Dict{"aps-environment": "development"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(entPath, existing, 0o644))

	cfg := testConfig(root)
	cfg.Project.Entitlements = "HelloWorld/Custom.entitlements"
	_, err = run(t, cfg)
	require.NoError(t, err)

	ent := readDict(t, entPath)
	assert.Equal(t, "development", ent["aps-environment"])
	assert.True(t, manifest.HasEntitlements(ent))
}

func TestRun_RecordsMetrics(t *testing.T) {
	root := newProjectRoot(t)
	registry, err := metrics.NewScrapeRegistry()
	require.NoError(t, err)

	_, err = run(t, testConfig(root), WithMetricsRegistry(registry))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, registry.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, `scaffold_runs_total{outcome="success"} 1`)
	assert.Contains(t, out, "scaffold_changed 1")
	assert.Contains(t, out, `scaffold_step_success{step="SaveProject"} 1`)
}

func TestNewWorkflow(t *testing.T) {
	root := newProjectRoot(t)
	wf, err := NewWorkflow(testConfig(root), logging.Discard())
	require.NoError(t, err)
	require.NoError(t, wf.Execute(context.Background()))

	results := wf.GetAllResults()
	assert.Len(t, results, 11)
	for id, r := range results {
		assert.True(t, r.IsSuccess(), id.ShortString())
	}
}

func TestRun_CancelledContext(t *testing.T) {
	root := newProjectRoot(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, testConfig(root), logging.Discard())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, report.Changed())
	assert.NoDirExists(t, filepath.Join(root, "ios", TargetName))
}

func TestReport_Write(t *testing.T) {
	root := newProjectRoot(t)
	report, err := run(t, testConfig(root))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf))
	out := buf.String()
	assert.Contains(t, out, "* CreateTarget")
	assert.Contains(t, out, "project updated")
	assert.Equal(t, len(report.Steps)+2, strings.Count(out, "\n"))
}

func TestReport_WriteWarnings(t *testing.T) {
	locate := workflow.GetStepID(&LocateTarget{})
	save := workflow.GetStepID(&SaveProject{})

	handler := status.NewHandler()
	handler.Set(locate, "using existing DinamicIslandWidget")
	handler.Set(save, "❌ write failed")

	collector := logging.NewLogCollector()
	collector.AddLog(locate.ShortString(), logging.LogEntry{Level: "INFO", Message: "target found"})
	collector.AddLog(locate.ShortString(), logging.LogEntry{Level: "WARN", Message: "existing target is not an app extension"})
	collector.AddLog(save.ShortString(), logging.LogEntry{Level: "ERROR", Message: "write failed"})

	report := newReport(
		[]workflow.Step{&LocateTarget{}, &SaveProject{}},
		map[workflow.StepID]*workflow.Result{
			locate: {State: workflow.Completed},
			save:   {State: workflow.Completed, Error: errors.New("write failed")},
		},
		handler, collector,
	)

	s, ok := report.Step("LocateTarget")
	require.True(t, ok)
	assert.Equal(t, []string{"existing target is not an app extension"}, s.Warnings)
	assert.Empty(t, s.Logs)

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf))
	lines := strings.Split(buf.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, lines[0], "LocateTarget")
	assert.Contains(t, lines[1], "warning: existing target is not an app extension")
	assert.Contains(t, lines[2], "SaveProject")
	assert.NotContains(t, buf.String(), "warning: write failed", "failed step warnings only appear in its logs")
	assert.Contains(t, buf.String(), "logs for scaffold.SaveProject:")
}
