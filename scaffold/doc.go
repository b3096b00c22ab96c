// Package scaffold provisions the DinamicIslandWidget extension inside an
// existing Xcode project.
//
// A run is a workflow of dependency-ordered steps:
//
//	CheckPreconditions → ProvisionDirectory → StageArtifacts
//	                                        → SynthesizeManifest
//	                   → LocateTarget → CreateTarget → AttachSharedSource
//	                                  → PropagateBuildSettings → ConfigureEntitlements
//	                   → ConfigureInfoPlist
//	                   → SaveProject
//
// CheckPreconditions touches nothing on disk, so a failed precondition
// leaves the project exactly as it was. Every later step is idempotent and
// running the scaffolder twice yields the same tree as running it once.
// There is no rollback; a partially failed run is repaired by running again.
package scaffold
