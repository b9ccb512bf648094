// Command mmucheck boots a radix MMU model and runs the fault-detection
// tests against it.
package main

import "github.com/sarchlab/radixmmu/mmucheck/cmd"

func main() {
	cmd.Execute()
}
