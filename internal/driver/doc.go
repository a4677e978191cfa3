// Package driver assembles normalized facts from an Eltex MES switch.
//
// A Driver issues fixed show commands over a Channel and feeds the output
// through the textparse engine. Every fact operation is stateless: calling
// it twice against the same device output yields the same result.
//
// Errors fall into three groups:
//
//   - *ChannelError wraps a transport failure together with the command
//     that was being sent.
//   - *textparse.ParseError means the output did not have the expected
//     structure. The operation returns no partial result.
//   - ErrUnsupportedFeature marks arguments the platform cannot honour,
//     such as a VRF name.
//
// Missing optional fields are not errors: they take sentinel defaults (-1
// for unknown durations, "Unknown" for identity strings, 0 for sizes).
package driver
