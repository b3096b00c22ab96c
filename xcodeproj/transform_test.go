package xcodeproj

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addWidgetTarget(t *testing.T, p *Project) *Target {
	t.Helper()
	ext, created := p.AddTargetIfAbsent(TargetSpec{
		Name:        "DinamicIslandWidget",
		ProductType: ProductTypeAppExtension,
	})
	require.True(t, created)
	return ext
}

func TestAddTargetIfAbsent(t *testing.T) {
	p := loadFixture(t)
	before := len(p.ObjectIDs())

	ext := addWidgetTarget(t, p)

	assert.Equal(t, "DinamicIslandWidget", ext.Name)
	assert.Equal(t, ProductTypeAppExtension, ext.ProductType)
	assert.Equal(t, []string{fixtureMainTarget, ext.ID}, p.Root.Targets)

	product := p.FileRefs[ext.ProductReference]
	require.NotNil(t, product)
	assert.Equal(t, "DinamicIslandWidget.appex", product.Path)
	assert.Equal(t, "wrapper.app-extension", product.ExplicitFileType)
	assert.Contains(t, p.Groups[p.Root.ProductRefGroup].Children, product.ID)

	configs, err := p.Configurations(ext)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "Debug", configs[0].Name)
	assert.Equal(t, "Release", configs[1].Name)
	assert.Equal(t, "Release", p.ConfigLists[ext.BuildConfigurationList].DefaultConfigurationName)

	for _, isa := range []string{IsaSourcesBuildPhase, IsaFrameworksBuildPhase, IsaResourcesBuildPhase} {
		ph, ok := p.Phase(ext, isa)
		require.True(t, ok, isa)
		assert.Empty(t, ph.Files)
	}

	// product ref, config list, two configs, target, three phases
	assert.Equal(t, before+8, len(p.ObjectIDs()))

	again, created := p.AddTargetIfAbsent(TargetSpec{Name: "DinamicIslandWidget", ProductType: ProductTypeAppExtension})
	assert.False(t, created)
	assert.Same(t, ext, again)
	assert.Equal(t, before+8, len(p.ObjectIDs()))
}

func TestAddTargetIfAbsent_IsDeterministic(t *testing.T) {
	a := loadFixture(t)
	b := loadFixture(t)
	addWidgetTarget(t, a)
	addWidgetTarget(t, b)

	outA, err := a.Marshal()
	require.NoError(t, err)
	outB, err := b.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(outA), string(outB))
}

func TestAddTargetIfAbsent_SurvivesRoundTrip(t *testing.T) {
	p := loadFixture(t)
	addWidgetTarget(t, p)

	out, err := p.Marshal()
	require.NoError(t, err)
	again, err := Parse(out)
	require.NoError(t, err)

	ext, ok := again.FindTarget("DinamicIslandWidget")
	require.True(t, ok)
	_, created := again.AddTargetIfAbsent(TargetSpec{Name: ext.Name, ProductType: ProductTypeAppExtension})
	assert.False(t, created)
}

func TestAddGroupIfAbsent(t *testing.T) {
	p := loadFixture(t)

	g, created, err := p.AddGroupIfAbsent(nil, "DinamicIslandWidget", "DinamicIslandWidget")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "DinamicIslandWidget", g.Path)
	assert.Empty(t, g.Name, "name is omitted when it equals the path")
	assert.Contains(t, p.Groups[fixtureMainGroup].Children, g.ID)

	again, created, err := p.AddGroupIfAbsent(nil, "DinamicIslandWidget", "DinamicIslandWidget")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, g, again)

	existing, created, err := p.AddGroupIfAbsent(nil, "Frameworks", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "2D16E6871FA4F8E400B85C8A", existing.ID)
}

func TestAttachFile(t *testing.T) {
	p := loadFixture(t)
	ext := addWidgetTarget(t, p)
	main, err := p.MainTarget()
	require.NoError(t, err)
	g, _, err := p.AddGroupIfAbsent(nil, "DinamicIslandWidget", "DinamicIslandWidget")
	require.NoError(t, err)

	ref, changed, err := p.AttachFile(g, "DinamicIslandWidget.swift", ext)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "sourcecode.swift", ref.LastKnownFileType)
	assert.Contains(t, g.Children, ref.ID)

	sources, _ := p.Phase(ext, IsaSourcesBuildPhase)
	assert.Equal(t, []*FileReference{ref}, p.PhaseFiles(sources))

	_, changed, err = p.AttachFile(g, "DinamicIslandWidget.swift", ext)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, sources.Files, 1)

	manifest, changed, err := p.AttachFile(g, "Info.plist", ext)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "text.plist.xml", manifest.LastKnownFileType)
	assert.Len(t, sources.Files, 1, "property lists are not compiled")
	resources, _ := p.Phase(ext, IsaResourcesBuildPhase)
	assert.Empty(t, resources.Files)

	mainGroup, err := p.MainGroup()
	require.NoError(t, err)
	shared, changed, err := p.AttachFile(mainGroup, "DinamicIslandActivityAttributes.swift", main, ext)
	require.NoError(t, err)
	assert.True(t, changed)
	mainSources, _ := p.Phase(main, IsaSourcesBuildPhase)
	assert.Contains(t, p.PhaseFiles(mainSources), shared)
	assert.Contains(t, p.PhaseFiles(sources), shared)

	_, changed, err = p.AttachFile(mainGroup, "DinamicIslandActivityAttributes.swift", main, ext)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestAttachFile_AssetCatalogGoesToResources(t *testing.T) {
	p := loadFixture(t)
	ext := addWidgetTarget(t, p)
	g, _, err := p.AddGroupIfAbsent(nil, "DinamicIslandWidget", "DinamicIslandWidget")
	require.NoError(t, err)

	ref, _, err := p.AttachFile(g, "Assets.xcassets", ext)
	require.NoError(t, err)
	resources, _ := p.Phase(ext, IsaResourcesBuildPhase)
	assert.Equal(t, []*FileReference{ref}, p.PhaseFiles(resources))
}

func TestSetBuildSetting(t *testing.T) {
	p := loadFixture(t)
	ext := addWidgetTarget(t, p)

	changed, err := p.SetBuildSetting(ext, "IPHONEOS_DEPLOYMENT_TARGET", "16.1")
	require.NoError(t, err)
	assert.True(t, changed)

	configs, err := p.Configurations(ext)
	require.NoError(t, err)
	for _, c := range configs {
		assert.Equal(t, "16.1", c.BuildSettings["IPHONEOS_DEPLOYMENT_TARGET"], c.Name)
	}

	changed, err = p.SetBuildSetting(ext, "IPHONEOS_DEPLOYMENT_TARGET", "16.1")
	require.NoError(t, err)
	assert.False(t, changed)

	main, err := p.MainTarget()
	require.NoError(t, err)
	v, _ := p.BuildSetting(main, "IPHONEOS_DEPLOYMENT_TARGET")
	assert.Equal(t, "13.4", v, "other targets are untouched")
}

func TestSetBuildSettingIfAbsent(t *testing.T) {
	p := loadFixture(t)
	main, err := p.MainTarget()
	require.NoError(t, err)

	changed, err := p.SetBuildSettingIfAbsent(main, "PRODUCT_NAME", "Other")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = p.SetBuildSettingIfAbsent(main, "CODE_SIGN_ENTITLEMENTS", "HelloWorld/HelloWorld.entitlements")
	require.NoError(t, err)
	assert.True(t, changed)
	v, ok := p.BuildSetting(main, "CODE_SIGN_ENTITLEMENTS")
	assert.True(t, ok)
	assert.Equal(t, "HelloWorld/HelloWorld.entitlements", v)
}

func TestSetBuildSetting_MissingList(t *testing.T) {
	p := loadFixture(t)
	_, err := p.SetBuildSetting(&Target{Name: "ghost", BuildConfigurationList: "FFFF"}, "K", "V")
	assert.Error(t, err)
}

func TestAddFramework(t *testing.T) {
	p := loadFixture(t)
	ext := addWidgetTarget(t, p)

	for _, fw := range []string{"WidgetKit.framework", "SwiftUI.framework", "ActivityKit.framework"} {
		changed, err := p.AddFramework(ext, fw, true)
		require.NoError(t, err)
		assert.True(t, changed, fw)
		assert.True(t, p.IsWeakLinked(ext, fw), fw)
	}

	frameworks, ok := p.Phase(ext, IsaFrameworksBuildPhase)
	require.True(t, ok)
	assert.Len(t, frameworks.Files, 3)
	assert.Len(t, p.Groups["2D16E6871FA4F8E400B85C8A"].Children, 3)

	changed, err := p.AddFramework(ext, "WidgetKit.framework", true)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, frameworks.Files, 3)

	ref := p.PhaseFiles(frameworks)[0]
	assert.Equal(t, "System/Library/Frameworks/WidgetKit.framework", ref.Path)
	assert.Equal(t, "SDKROOT", ref.SourceTree)
}

func TestAddFramework_UpgradesToWeakAndSharesReference(t *testing.T) {
	p := loadFixture(t)
	ext := addWidgetTarget(t, p)
	main, err := p.MainTarget()
	require.NoError(t, err)

	changed, err := p.AddFramework(main, "SwiftUI.framework", false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, p.IsWeakLinked(main, "SwiftUI.framework"))

	changed, err = p.AddFramework(main, "SwiftUI.framework", true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, p.IsWeakLinked(main, "SwiftUI.framework"))

	refs := 0
	for _, r := range p.FileRefs {
		if r.Path == "System/Library/Frameworks/SwiftUI.framework" {
			refs++
		}
	}
	_, err = p.AddFramework(ext, "SwiftUI.framework", true)
	require.NoError(t, err)
	for _, r := range p.FileRefs {
		if r.Path == "System/Library/Frameworks/SwiftUI.framework" {
			refs--
		}
	}
	assert.Equal(t, 0, refs, "the SDK reference is shared between targets")
}

func TestAddFramework_BadName(t *testing.T) {
	p := loadFixture(t)
	main, err := p.MainTarget()
	require.NoError(t, err)
	_, err = p.AddFramework(main, "WidgetKit", true)
	assert.Error(t, err)
}

func TestEmbedExtension(t *testing.T) {
	p := loadFixture(t)
	ext := addWidgetTarget(t, p)
	main, err := p.MainTarget()
	require.NoError(t, err)

	assert.False(t, p.IsEmbedded(main, ext))

	changed, err := p.EmbedExtension(main, ext)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, p.IsEmbedded(main, ext))

	require.Len(t, main.Dependencies, 1)
	dep := p.Dependencies[main.Dependencies[0]]
	require.NotNil(t, dep)
	assert.Equal(t, ext.ID, dep.Target)
	proxy := p.Proxies[dep.TargetProxy]
	require.NotNil(t, proxy)
	assert.Equal(t, p.RootID, proxy.ContainerPortal)
	assert.Equal(t, ext.ID, proxy.RemoteGlobalIDString)
	assert.Equal(t, "DinamicIslandWidget", proxy.RemoteInfo)

	embed := p.Phases[main.BuildPhases[len(main.BuildPhases)-1]]
	assert.Equal(t, IsaCopyFilesBuildPhase, embed.Isa)
	assert.Equal(t, EmbedPhaseName, embed.Name)
	assert.Equal(t, "13", embed.DstSubfolderSpec)
	require.Len(t, embed.Files, 1)
	assert.Equal(t, []interface{}{"RemoveHeadersOnCopy"}, p.BuildFiles[embed.Files[0]].Settings["ATTRIBUTES"])

	changed, err = p.EmbedExtension(main, ext)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, main.Dependencies, 1)
	assert.Len(t, embed.Files, 1)

	out, err := p.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), `dstPath = "";`)
}

func TestEmbedExtension_MissingProduct(t *testing.T) {
	p := loadFixture(t)
	main, err := p.MainTarget()
	require.NoError(t, err)
	_, err = p.EmbedExtension(main, &Target{Name: "ghost", ProductReference: "FFFF"})
	assert.Error(t, err)
}

func TestMainTarget_None(t *testing.T) {
	p := loadFixture(t)
	p.Targets[fixtureMainTarget].ProductType = ProductTypeAppExtension
	_, err := p.MainTarget()
	assert.ErrorIs(t, err, ErrNoMainTarget)
}
