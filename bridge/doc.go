// Package bridge validates Live Activity requests and forwards them to a
// native Capability.
//
// A Session owns the single "current activity" slot. Every request is
// validated locally, with the exact messages callers display, before the
// capability is called; the capability may still reject it for reasons
// only the device knows, such as an unsupported OS version.
//
//	s, err := bridge.NewSession(capability)
//	h, err := s.Start(ctx, bridge.ActivityRequest{ActivityID: "order-42", Title: "Preparing"})
//	ok, err := s.Update(ctx, bridge.ActivityPatch{Progress: bridge.Float(0.5)})
//	ok, err = s.End(ctx, bridge.DismissImmediate)
package bridge
