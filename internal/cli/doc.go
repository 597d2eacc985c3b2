// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates CLI flags into the application's configuration and, for
// ad-hoc runs, into the settings of a single job.
package cli
