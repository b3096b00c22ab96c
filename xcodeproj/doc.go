// Package xcodeproj reads, edits and writes Xcode project descriptors
// (project.pbxproj).
//
// A descriptor is an OpenStep property list whose "objects" dictionary holds
// every node of the project keyed by a 24 character hexadecimal ID. Parse
// decodes the object kinds the scaffolder works with into typed values
// (targets, groups, file references, build files, build phases,
// configuration lists, build configurations, target dependencies and
// container proxies). Keys and object kinds it does not model are kept
// verbatim and written back by Marshal.
//
// The transformation methods on Project are each idempotent: calling one a
// second time with the same arguments finds the node created by the first
// call and reports changed == false.
//
//	p, err := xcodeproj.Load("ios/HelloWorld.xcodeproj/project.pbxproj")
//	ext, created := p.AddTargetIfAbsent(xcodeproj.TargetSpec{
//	    Name:        "DinamicIslandWidget",
//	    ProductType: xcodeproj.ProductTypeAppExtension,
//	})
//	p.SetBuildSetting(ext, "SWIFT_VERSION", "5.0")
package xcodeproj
