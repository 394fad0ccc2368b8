// Clawsync CLI entry point
//
// Clawsync keeps an agent container's state tree durable across restarts:
// it restores config, skills, and workspace from an R2/S3 blob store on
// cold start and pushes local changes back on a schedule.
package main

import "github.com/jbctechsolutions/clawsync/internal/presentation/cli/commands"

func main() {
	commands.Execute()
}
