// Command vault is the command line interface to the vinyl collection
// catalog. It adds records through the draft resolution pipeline, inspects
// and finalizes drafts, and browses the stored collection.
package main
