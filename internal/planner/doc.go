// Package planner orders the steps of a project-wide template update.
//
// Plans are deterministic: the base instance first, then every installed app
// instance in name order. The orchestrator executes steps in order and halts
// at the first merge conflict, so steps before the failure stay committed and
// a retry resumes at the failed step.
//
// Key responsibilities:
//   - Generate UpdatePlan with ordered steps
//   - Report version drift between base and app instances
//   - Render plans for dry runs
package planner
