package logger

// Output controls what categories of information are shown at each verbosity level.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
//
//	0 (default) - report, errors, final status
//	1 (-v)      - + per-check progress, startup summary
//	2 (-vv)     - + resolved SQL, timing, config values
//	3 (-vvv)    - + prompts and raw generation responses

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	OutputResults    OutputCategory = iota // Report table or JSON
	OutputErrors                           // Errors with hints
	OutputUserStatus                       // Final run summary

	OutputProgress // "Processing check 2/5"
	OutputStartup  // Config summary, store and provider in use

	OutputSQL    // Resolved SQL per check
	OutputTiming // Per-phase durations
	OutputConfig // Config values loaded

	OutputPrompts      // Full prompts sent to the generation service
	OutputResponseBody // Raw structured responses
)

var categoryLevels = map[OutputCategory]int{
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	OutputProgress: VerbosityInfo,
	OutputStartup:  VerbosityInfo,

	OutputSQL:    VerbosityDebug,
	OutputTiming: VerbosityDebug,
	OutputConfig: VerbosityDebug,

	OutputPrompts:      VerbosityTrace,
	OutputResponseBody: VerbosityTrace,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityTrace
	}
	return verbosity >= minLevel
}
