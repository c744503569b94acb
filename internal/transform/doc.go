// Package transform materializes a requested format of a media reference as a
// byte stream.
//
// A Job moves through an explicit state machine:
//
//	Pending → Acquiring → {Direct | AcquireToFile} → [Clipping] → [Encoding] → Streaming → Completed
//
// with Failed and Cancelled reachable from every non-terminal state. Entering
// any terminal state runs the job's cleanup exactly once, killing child
// processes and unlinking temp files. When both a clip and an H.264 encode are
// requested the clip runs first and the clipped output is encoded.
package transform
