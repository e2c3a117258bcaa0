package services

// PassOptions controls batch pass behavior. Every batch entry point honors
// both: DryRun computes and reports without writing, Limit bounds the number
// of items considered (0 = no limit).
type PassOptions struct {
	DryRun bool
	Limit  int
}

// sampleLimit bounds before/after samples reported by batch passes.
const sampleLimit = 10
