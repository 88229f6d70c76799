// Package preflight provides readiness checks for the filesystem paths,
// binaries, accelerator, and LLM endpoint the pipeline depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before each run when preflight is
//     enabled. Only local checks run there, so a missing directory or
//     binary halts the run before hours of analysis are spent.
//   - The CLI "smartcut doctor" command calls the individual checks,
//     including the network-bound CheckLLM, to display system health.
package preflight
