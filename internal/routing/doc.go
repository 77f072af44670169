// Package routing turns a route file into one Generation of route tables.
//
// A route file holds one record per line:
//
//	<identifier>,<converter-name>,<topic>
//
// There is no header row and no quoting. Blank lines are skipped and
// reported line numbers are physical line numbers. A parse either
// produces both tables or fails with a *LineError; partial tables are
// never returned.
package routing
