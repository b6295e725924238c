// Package progress tracks bytes received for a download and publishes status
// records to sinks.
//
// A Reporter is shared by every chunk worker of a download. Each Add goes
// through one mutex, and emission to the sink is rate limited (200ms by
// default) except for the initial "starting" record and the terminal record
// written by Finish.
//
// # Sinks
//
//   - FileSink overwrites a JSON status file atomically (write then rename)
//   - BarSink draws a terminal progress bar
//   - MultiSink fans out to several sinks
//
// Sink failures are logged and never abort a download.
package progress
