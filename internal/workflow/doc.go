// Package workflow runs one source video through the SmartCut pipeline.
//
// Manager.Run takes a per-session file lock, loads or creates the session
// keyed by the absolute source path, and then executes the stages in order:
// segmentation, analysis, confidence, harmonize, cut, and finish. A stage
// whose exit status the session already reached is skipped without touching
// any external tool, so re-running a path resumes where the previous run
// stopped.
//
// Per-segment stages (analysis, confidence, cut) go through stageexec, which
// checkpoints every segment. Segmentation and harmonization replace the
// segment set in one transaction. A segmentation that covers too little of
// the timeline routes the source to the error directory and marks the
// session as error.
//
// Add new stages by extending session.Stage, adding a handler to StageSet,
// and teaching Run where the stage sits in the sequence.
package workflow
