// Package execution models the lifecycle of one query execution.
//
// States are ordered so that two comparisons answer every question a poller
// has: s < ResultsReady means still running and s >= FatalError means failed.
//
//	NotStarted -> Queued -> DownloadingInput -> Training -> Ranking -> ResultsReady
//	                  \______________\_______________\__________\____> FatalError
//
// A Tracker has a single writer, the executor that claimed it, and any number
// of readers. Readers get a consistent Status snapshot without locking.
package execution
